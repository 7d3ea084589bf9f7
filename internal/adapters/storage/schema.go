package storage

// migrations is append-only. Column types use the {{pk}}, {{bigint}} and
// {{real}} placeholders documented on Dialect.ddl; timestamps are TEXT.
var migrations = []migration{
	{
		version: 1,
		name:    "baseline",
		stmts: []string{
			`CREATE TABLE participant_info (
				participant_id {{pk}},
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				phone TEXT NOT NULL DEFAULT '',
				date_of_birth TEXT,
				role TEXT NOT NULL DEFAULT 'participant',
				city TEXT NOT NULL DEFAULT '',
				state TEXT NOT NULL DEFAULT '',
				zip TEXT NOT NULL DEFAULT '',
				school_or_employer TEXT NOT NULL DEFAULT '',
				field_of_interest TEXT NOT NULL DEFAULT '',
				total_donations_cents {{bigint}} NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE users (
				user_id {{pk}},
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				level TEXT NOT NULL DEFAULT 'u' CHECK (level IN ('m', 'u')),
				participant_id {{bigint}} REFERENCES participant_info (participant_id) ON DELETE SET NULL,
				failed_logins INTEGER NOT NULL DEFAULT 0,
				locked_until TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX idx_users_participant ON users (participant_id)`,
			`CREATE TABLE participant_milestones (
				participant_id {{bigint}} NOT NULL REFERENCES participant_info (participant_id),
				milestone_number INTEGER NOT NULL,
				milestone_title TEXT NOT NULL,
				milestone_date TEXT NOT NULL,
				PRIMARY KEY (participant_id, milestone_number)
			)`,
			`CREATE TABLE participant_donations (
				participant_id {{bigint}} NOT NULL REFERENCES participant_info (participant_id),
				donation_number INTEGER NOT NULL,
				donation_amount_cents {{bigint}} NOT NULL CHECK (donation_amount_cents > 0),
				donation_date TEXT NOT NULL,
				PRIMARY KEY (participant_id, donation_number)
			)`,
			`CREATE TABLE event_templates (
				event_template_id {{pk}},
				name TEXT NOT NULL,
				event_type TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				recurrence TEXT NOT NULL DEFAULT 'none',
				default_capacity INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE location_capacities (
				location_id {{pk}},
				name TEXT NOT NULL UNIQUE,
				capacity INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE event_occurrences (
				event_occurrence_id {{pk}},
				event_template_id {{bigint}} NOT NULL REFERENCES event_templates (event_template_id),
				location_id {{bigint}} NOT NULL REFERENCES location_capacities (location_id),
				starts_at TEXT NOT NULL,
				ends_at TEXT,
				registration_deadline TEXT
			)`,
			`CREATE INDEX idx_occurrences_start ON event_occurrences (starts_at)`,
			`CREATE TABLE registrations (
				registration_id {{pk}},
				participant_id {{bigint}} NOT NULL REFERENCES participant_info (participant_id),
				event_occurrence_id {{bigint}} NOT NULL REFERENCES event_occurrences (event_occurrence_id),
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				UNIQUE (participant_id, event_occurrence_id)
			)`,
			`CREATE INDEX idx_registrations_occurrence ON registrations (event_occurrence_id)`,
			`CREATE TABLE surveys (
				survey_id {{pk}},
				registration_id {{bigint}} NOT NULL UNIQUE REFERENCES registrations (registration_id),
				satisfaction INTEGER NOT NULL,
				usefulness INTEGER NOT NULL,
				instructor INTEGER NOT NULL,
				recommendation INTEGER NOT NULL,
				overall_score {{real}} NOT NULL,
				nps_bucket TEXT NOT NULL,
				comments TEXT NOT NULL DEFAULT '',
				submitted_at TEXT NOT NULL
			)`,
			`CREATE TABLE survey_question_responses (
				response_id {{pk}},
				survey_id {{bigint}} NOT NULL REFERENCES surveys (survey_id) ON DELETE CASCADE,
				question TEXT NOT NULL,
				answer TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX idx_responses_survey ON survey_question_responses (survey_id)`,
		},
	},
	{
		version: 2,
		name:    "outbox",
		stmts: []string{
			`CREATE TABLE outbox (
				id TEXT PRIMARY KEY,
				action_type TEXT NOT NULL,
				payload TEXT NOT NULL,
				status TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL DEFAULT 5,
				last_attempted_at TEXT,
				created_at TEXT NOT NULL,
				external_id TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX idx_outbox_status ON outbox (status, created_at)`,
		},
	},
	{
		version: 3,
		name:    "record_counters",
		stmts: []string{
			`ALTER TABLE participant_info ADD COLUMN next_milestone_number INTEGER NOT NULL DEFAULT 1`,
			`ALTER TABLE participant_info ADD COLUMN next_donation_number INTEGER NOT NULL DEFAULT 1`,
			`UPDATE participant_info SET
				next_milestone_number = (SELECT COALESCE(MAX(milestone_number), 0) + 1
					FROM participant_milestones m WHERE m.participant_id = participant_info.participant_id),
				next_donation_number = (SELECT COALESCE(MAX(donation_number), 0) + 1
					FROM participant_donations d WHERE d.participant_id = participant_info.participant_id)`,
		},
	},
}
