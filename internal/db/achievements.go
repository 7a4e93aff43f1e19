package db

import "fmt"

// UnlockAchievement records an unlock. Repeated unlocks of the same
// achievement for a user are silently ignored.
func (d *DB) UnlockAchievement(userID, achievementID, sessionID string) error {
	var sess any
	if sessionID != "" {
		sess = sessionID
	}
	_, err := d.conn.Exec(`
		INSERT INTO achievement_unlocks (user_id, achievement_id, session_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, userID, achievementID, sess)
	if err != nil {
		return fmt.Errorf("unlocking achievement: %w", err)
	}
	return nil
}

func (d *DB) GetUserAchievements(userID string) ([]string, error) {
	rows, err := d.conn.Query(`
		SELECT achievement_id FROM achievement_unlocks WHERE user_id = $1 ORDER BY unlocked_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("getting achievements: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
