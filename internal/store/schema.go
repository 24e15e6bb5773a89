package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'student',
	active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	overview TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS course_owners (
	course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (course_id, user_id)
);

CREATE TABLE IF NOT EXISTS academic_years (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	is_current BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS enrollments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	student_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	academic_year_id INTEGER NOT NULL REFERENCES academic_years(id),
	enrolled_at DATETIME NOT NULL,
	UNIQUE (student_id, course_id, academic_year_id)
);

CREATE TABLE IF NOT EXISTS completions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	enrollment_id INTEGER NOT NULL UNIQUE REFERENCES enrollments(id) ON DELETE CASCADE,
	serial TEXT NOT NULL,
	completed_at DATETIME NOT NULL,
	certificate_issued BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS modules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	module_id INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	file_key TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS exams (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	academic_year_id INTEGER NOT NULL REFERENCES academic_years(id),
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	total_score REAL NOT NULL DEFAULT 100,
	passing_score REAL,
	is_final BOOLEAN NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	is_graded BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	exam_id INTEGER NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	question_type TEXT NOT NULL,
	text TEXT NOT NULL,
	max_score REAL NOT NULL DEFAULT 1,
	is_true BOOLEAN NOT NULL DEFAULT 0,
	rubric TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS answer_options (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	is_correct BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	enrollment_id INTEGER NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
	exam_id INTEGER NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
	started_at DATETIME NOT NULL,
	completed_at DATETIME,
	score REAL,
	instructor_feedback TEXT NOT NULL DEFAULT '',
	is_finalized BOOLEAN NOT NULL DEFAULT 0,
	is_graded BOOLEAN NOT NULL DEFAULT 0,
	UNIQUE (enrollment_id, exam_id)
);

CREATE TABLE IF NOT EXISTS answers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	attempt_id INTEGER NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
	question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	selected_option_id INTEGER REFERENCES answer_options(id) ON DELETE SET NULL,
	bool_answer BOOLEAN,
	essay_text TEXT,
	uploaded_file TEXT NOT NULL DEFAULT '',
	is_correct BOOLEAN NOT NULL DEFAULT 0,
	awarded_score REAL,
	feedback TEXT NOT NULL DEFAULT '',
	suggested_score REAL,
	suggested_feedback TEXT NOT NULL DEFAULT '',
	UNIQUE (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	message TEXT NOT NULL,
	link TEXT NOT NULL DEFAULT '',
	is_read BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);

CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'student',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
	id BIGSERIAL PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	overview TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS course_owners (
	course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (course_id, user_id)
);

CREATE TABLE IF NOT EXISTS academic_years (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	is_current BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS enrollments (
	id BIGSERIAL PRIMARY KEY,
	student_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	academic_year_id BIGINT NOT NULL REFERENCES academic_years(id),
	enrolled_at TIMESTAMPTZ NOT NULL,
	UNIQUE (student_id, course_id, academic_year_id)
);

CREATE TABLE IF NOT EXISTS completions (
	id BIGSERIAL PRIMARY KEY,
	enrollment_id BIGINT NOT NULL UNIQUE REFERENCES enrollments(id) ON DELETE CASCADE,
	serial TEXT NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	certificate_issued BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS modules (
	id BIGSERIAL PRIMARY KEY,
	course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contents (
	id BIGSERIAL PRIMARY KEY,
	module_id BIGINT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	file_key TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS exams (
	id BIGSERIAL PRIMARY KEY,
	course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	academic_year_id BIGINT NOT NULL REFERENCES academic_years(id),
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	total_score DOUBLE PRECISION NOT NULL DEFAULT 100,
	passing_score DOUBLE PRECISION,
	is_final BOOLEAN NOT NULL DEFAULT FALSE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_graded BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS questions (
	id BIGSERIAL PRIMARY KEY,
	exam_id BIGINT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	question_type TEXT NOT NULL,
	text TEXT NOT NULL,
	max_score DOUBLE PRECISION NOT NULL DEFAULT 1,
	is_true BOOLEAN NOT NULL DEFAULT FALSE,
	rubric TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS answer_options (
	id BIGSERIAL PRIMARY KEY,
	question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	is_correct BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS attempts (
	id BIGSERIAL PRIMARY KEY,
	enrollment_id BIGINT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
	exam_id BIGINT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	score DOUBLE PRECISION,
	instructor_feedback TEXT NOT NULL DEFAULT '',
	is_finalized BOOLEAN NOT NULL DEFAULT FALSE,
	is_graded BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (enrollment_id, exam_id)
);

CREATE TABLE IF NOT EXISTS answers (
	id BIGSERIAL PRIMARY KEY,
	attempt_id BIGINT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
	question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	selected_option_id BIGINT REFERENCES answer_options(id) ON DELETE SET NULL,
	bool_answer BOOLEAN,
	essay_text TEXT,
	uploaded_file TEXT NOT NULL DEFAULT '',
	is_correct BOOLEAN NOT NULL DEFAULT FALSE,
	awarded_score DOUBLE PRECISION,
	feedback TEXT NOT NULL DEFAULT '',
	suggested_score DOUBLE PRECISION,
	suggested_feedback TEXT NOT NULL DEFAULT '',
	UNIQUE (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS notifications (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	message TEXT NOT NULL,
	link TEXT NOT NULL DEFAULT '',
	is_read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);

CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
