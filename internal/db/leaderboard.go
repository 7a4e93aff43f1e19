package db

import "fmt"

// SubmitScore copies a session's total score onto the leaderboard and returns
// the 1-based rank. Re-submitting the same session keeps its latest score.
func (d *DB) SubmitScore(sessionID string) (rank, score int, err error) {
	err = d.conn.QueryRow(`
		SELECT total_score FROM sessions WHERE id = $1
	`, sessionID).Scan(&score)
	if err != nil {
		return 0, 0, fmt.Errorf("submitting score: %w", err)
	}

	_, err = d.conn.Exec(`
		INSERT INTO leaderboard_entries (session_id, score)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET score = $2, submitted_at = now()
	`, sessionID, score)
	if err != nil {
		return 0, 0, fmt.Errorf("submitting score: %w", err)
	}

	err = d.conn.QueryRow(`
		SELECT COUNT(*) + 1 FROM leaderboard_entries WHERE score > $1
	`, score).Scan(&rank)
	if err != nil {
		return 0, 0, fmt.Errorf("ranking score: %w", err)
	}
	return rank, score, nil
}
