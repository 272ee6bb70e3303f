package store

// schema defines the six tables the server persists state in. The layout
// follows storage_init's schema in the original implementation verbatim
// (same table and column names), translated from sqlite3_exec's literal
// DDL string into Go, and opened through database/sql + go-sqlite3
// instead of the C sqlite3 API.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	uid INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	friend_code TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS contacts (
	user_id INTEGER,
	contact_id INTEGER,
	PRIMARY KEY(user_id, contact_id)
);

CREATE TABLE IF NOT EXISTS requests (
	sender_id INTEGER,
	receiver_id INTEGER,
	PRIMARY KEY(sender_id, receiver_id)
);

CREATE TABLE IF NOT EXISTS conversations (
	conv_id INTEGER PRIMARY KEY AUTOINCREMENT,
	type INTEGER DEFAULT 0,
	name TEXT,
	description TEXT
);

CREATE TABLE IF NOT EXISTS participants (
	conv_id INTEGER,
	user_id INTEGER,
	role INTEGER DEFAULT 0,
	PRIMARY KEY(conv_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conv_id INTEGER,
	sender_id INTEGER,
	text TEXT,
	timestamp INTEGER
);
`
