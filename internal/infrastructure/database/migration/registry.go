package migration

// Registry returns the schema migrations in order. Versions are permanent:
// never edit a shipped script, add a new version instead.
func Registry() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_bookings",
			UpSQL: `
				CREATE TABLE bookings (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id TEXT NOT NULL,
					display_name TEXT NOT NULL DEFAULT '',
					session_date TEXT NOT NULL,
					session_time TEXT NOT NULL,
					event_id TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'active',
					notes TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
				CREATE INDEX idx_bookings_user_id ON bookings(user_id);
				CREATE INDEX idx_bookings_session_date ON bookings(session_date);
				CREATE INDEX idx_bookings_status ON bookings(status);
				CREATE UNIQUE INDEX idx_bookings_slot ON bookings(session_date, session_time)
					WHERE status <> 'cancelled'`,
			DownSQL: `DROP TABLE bookings`,
		},
		{
			Version: 2,
			Name:    "create_booking_history",
			UpSQL: `
				CREATE TABLE booking_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					booking_id INTEGER NOT NULL REFERENCES bookings(id),
					action TEXT NOT NULL,
					old_values TEXT,
					new_values TEXT,
					actor_id TEXT NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
				CREATE INDEX idx_booking_history_booking_id ON booking_history(booking_id);
				CREATE INDEX idx_booking_history_action ON booking_history(action);
				CREATE INDEX idx_booking_history_created_at ON booking_history(created_at)`,
			DownSQL: `DROP TABLE booking_history`,
		},
		{
			Version: 3,
			Name:    "create_auth_tokens",
			UpSQL: `
				CREATE TABLE auth_tokens (
					id INTEGER PRIMARY KEY,
					access_token TEXT NOT NULL,
					refresh_token TEXT NOT NULL,
					expires_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
			DownSQL: `DROP TABLE auth_tokens`,
		},
	}
}
