// Package store persists users, contacts, conversations, and message
// history in a SQLite database, encrypting message text at rest.
//
// The query set and table layout are grounded on storage.c in the
// original implementation; the database/sql wiring (Open, Ping,
// SetMaxOpenConns, exec schema on startup, prepare hot statements) follows
// the shape of pkg/server.go in the teacher project, with the driver
// swapped from lib/pq to github.com/mattn/go-sqlite3 to match this
// spec's file-based, copy-to-backup storage model.
package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/duskrelay/chatserver/errors"
	"github.com/duskrelay/chatserver/internal/auth"
	"github.com/duskrelay/chatserver/internal/cryptobox"
	"github.com/duskrelay/chatserver/internal/wire"
)

// User is a row of the users table.
type User struct {
	UID        uint32
	Username   string
	Email      string
	FriendCode string
}

// Store wraps the database handle and the message encryption box used to
// seal/open the text column of the messages table.
type Store struct {
	db       *sql.DB
	box      *cryptobox.Box
	byEmail  *sql.Stmt
}

// Open opens (creating if necessary) the SQLite database at path, applies
// the schema, and returns a ready Store. box encrypts and decrypts
// message bodies; pass a box derived from the configured passphrase.
func Open(path string, box *cryptobox.Box) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "store: create db directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "store: open %s", path)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "store: ping %s", path)
	}
	// SQLite allows only one writer at a time; a single connection avoids
	// SQLITE_BUSY errors when the server's per-connection goroutines hit
	// the store concurrently.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "store: apply schema")
	}

	byEmail, err := db.Prepare(`SELECT uid, username, email, password_hash, friend_code FROM users WHERE email = ?`)
	if err != nil {
		return nil, errors.Wrap(err, "store: prepare byEmail")
	}

	return &Store{db: db, box: box, byEmail: byEmail}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Backup copies the live database file to data/backups/chat_YYYY-MM-DD.db,
// matching storage_backup's date-stamped copy behavior. It is a no-op
// (not an error) if srcPath doesn't exist yet, e.g. on a brand new server.
func Backup(srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "store: open source db for backup")
	}
	defer src.Close()

	backupDir := filepath.Join("data", "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return errors.Wrap(err, "store: create backup directory")
	}

	now := time.Now()
	dest := filepath.Join(backupDir, fmt.Sprintf("chat_%04d-%02d-%02d.db", now.Year(), now.Month(), now.Day()))

	dst, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, "store: create backup file %s", dest)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrap(err, "store: copy to backup")
	}
	return nil
}

const friendCodeCharset = "0123456789ABCDEF"
const friendCodeLen = 6

func generateFriendCode() (string, error) {
	buf := make([]byte, friendCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "store: generate friend code")
	}
	out := make([]byte, friendCodeLen)
	for i, b := range buf {
		out[i] = friendCodeCharset[int(b)%len(friendCodeCharset)]
	}
	return string(out), nil
}

const maxFriendCodeAttempts = 5

// RegisterUser hashes password, assigns a fresh friend code (retried up to
// maxFriendCodeAttempts times on collision), and inserts a new user row.
func (s *Store) RegisterUser(email, username, password string) (*User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "store: hash password")
	}

	var lastErr error
	for attempt := 0; attempt < maxFriendCodeAttempts; attempt++ {
		code, err := generateFriendCode()
		if err != nil {
			return nil, err
		}

		res, err := s.db.Exec(
			`INSERT INTO users (username, email, password_hash, friend_code) VALUES (?, ?, ?, ?)`,
			username, email, hash, code,
		)
		if err != nil {
			lastErr = err
			continue
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, errors.Wrap(err, "store: last insert id")
		}
		return &User{UID: uint32(id), Username: username, Email: email, FriendCode: code}, nil
	}
	return nil, errors.Wrap(lastErr, "store: register user after %d attempts", maxFriendCodeAttempts)
}

// CheckCredentials verifies email/password and returns the matching user,
// or (nil, nil) if the credentials don't match.
func (s *Store) CheckCredentials(email, password string) (*User, error) {
	var u User
	var hash string
	err := s.byEmail.QueryRow(email).Scan(&u.UID, &u.Username, &u.Email, &hash, &u.FriendCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: query user by email")
	}
	if !auth.VerifyPassword(password, hash) {
		return nil, nil
	}
	return &u, nil
}

// UpdateUser applies a new username and/or password; an empty field means
// "leave unchanged", matching storage_update_user.
func (s *Store) UpdateUser(uid uint32, newUsername, newPassword string) error {
	if newUsername != "" {
		if _, err := s.db.Exec(`UPDATE users SET username = ? WHERE uid = ?`, newUsername, uid); err != nil {
			return errors.Wrap(err, "store: update username")
		}
	}
	if newPassword != "" {
		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return errors.Wrap(err, "store: hash new password")
		}
		if _, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE uid = ?`, hash, uid); err != nil {
			return errors.Wrap(err, "store: update password")
		}
	}
	return nil
}

// GetUIDByCode resolves a friend code to a uid. ok is false if no user has
// that code.
func (s *Store) GetUIDByCode(code string) (uid uint32, ok bool, err error) {
	err = s.db.QueryRow(`SELECT uid FROM users WHERE friend_code = ?`, code).Scan(&uid)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "store: query uid by code")
	}
	return uid, true, nil
}

// GetUserByUID looks up a user's public profile fields by uid.
func (s *Store) GetUserByUID(uid uint32) (*User, error) {
	u := &User{UID: uid}
	err := s.db.QueryRow(`SELECT username, email, friend_code FROM users WHERE uid = ?`, uid).
		Scan(&u.Username, &u.Email, &u.FriendCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: query user by uid")
	}
	return u, nil
}

// --- Contacts & requests ---

func (s *Store) AddRequest(fromUID, toUID uint32) error {
	if fromUID == toUID {
		return errors.New("store: cannot send a contact request to self")
	}
	_, err := s.db.Exec(`INSERT INTO requests (sender_id, receiver_id) VALUES (?, ?)`, fromUID, toUID)
	if err != nil {
		return errors.Wrap(err, "store: insert request")
	}
	return nil
}

func (s *Store) RemoveRequest(fromUID, toUID uint32) error {
	_, err := s.db.Exec(`DELETE FROM requests WHERE sender_id = ? AND receiver_id = ?`, fromUID, toUID)
	if err != nil {
		return errors.Wrap(err, "store: delete request")
	}
	return nil
}

// AddFriendship inserts the symmetric pair of contacts rows linking a and
// b, matching storage_add_friendship's two-row INSERT.
func (s *Store) AddFriendship(uidA, uidB uint32) error {
	_, err := s.db.Exec(
		`INSERT INTO contacts (user_id, contact_id) VALUES (?, ?), (?, ?)`,
		uidA, uidB, uidB, uidA,
	)
	if err != nil {
		return errors.Wrap(err, "store: insert friendship")
	}
	return nil
}

// GetContacts returns uid's contacts. IsOnline is always false here; the
// server layer overlays presence from the connection registry, same
// division of responsibility as storage_get_contacts_data's comment.
func (s *Store) GetContacts(uid uint32) ([]wire.ContactSummary, error) {
	rows, err := s.db.Query(
		`SELECT u.uid, u.username FROM contacts c JOIN users u ON c.contact_id = u.uid WHERE c.user_id = ?`,
		uid,
	)
	if err != nil {
		return nil, errors.Wrap(err, "store: query contacts")
	}
	defer rows.Close()

	var out []wire.ContactSummary
	for rows.Next() {
		var cs wire.ContactSummary
		if err := rows.Scan(&cs.UID, &cs.Username); err != nil {
			return nil, errors.Wrap(err, "store: scan contact")
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// GetPendingRequests returns the contact requests addressed to uid.
func (s *Store) GetPendingRequests(uid uint32) ([]wire.ContactSummary, error) {
	rows, err := s.db.Query(
		`SELECT u.uid, u.username FROM requests r JOIN users u ON r.sender_id = u.uid WHERE r.receiver_id = ?`,
		uid,
	)
	if err != nil {
		return nil, errors.Wrap(err, "store: query requests")
	}
	defer rows.Close()

	var out []wire.ContactSummary
	for rows.Next() {
		var cs wire.ContactSummary
		if err := rows.Scan(&cs.UID, &cs.Username); err != nil {
			return nil, errors.Wrap(err, "store: scan request")
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// --- Conversations ---

// FindPrivateConversation returns the conv_id of an existing PRIVATE
// conversation between uidA and uidB, if one exists.
func (s *Store) FindPrivateConversation(uidA, uidB uint32) (convID uint32, ok bool, err error) {
	err = s.db.QueryRow(
		`SELECT c.conv_id FROM conversations c
		 JOIN participants p1 ON c.conv_id = p1.conv_id
		 JOIN participants p2 ON c.conv_id = p2.conv_id
		 WHERE c.type = 0 AND p1.user_id = ? AND p2.user_id = ?`,
		uidA, uidB,
	).Scan(&convID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "store: query private conversation")
	}
	return convID, true, nil
}

// CreateConversation inserts a new conversation row and its initial
// participants. For a GROUP conversation the first uid in uids becomes
// ADMIN, matching storage_create_conversation's "i == 0 && type == group"
// rule.
func (s *Store) CreateConversation(convType wire.ConvType, name, desc string, uids []uint32) (uint32, error) {
	res, err := s.db.Exec(
		`INSERT INTO conversations (type, name, description) VALUES (?, ?, ?)`,
		convType, name, desc,
	)
	if err != nil {
		return 0, errors.Wrap(err, "store: insert conversation")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "store: last insert id")
	}
	convID := uint32(id)

	for i, uid := range uids {
		role := wire.RoleMember
		if i == 0 && convType == wire.ConvGroup {
			role = wire.RoleAdmin
		}
		if err := s.AddParticipant(convID, uid, role); err != nil {
			return 0, err
		}
	}
	return convID, nil
}

// AddParticipant inserts a participant row, ignoring the insert if the
// pair already exists (INSERT OR IGNORE, same as storage_add_participant).
func (s *Store) AddParticipant(convID, uid uint32, role wire.Role) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO participants (conv_id, user_id, role) VALUES (?, ?, ?)`,
		convID, uid, role,
	)
	if err != nil {
		return errors.Wrap(err, "store: insert participant")
	}
	return nil
}

func (s *Store) RemoveParticipant(convID, uid uint32) error {
	_, err := s.db.Exec(`DELETE FROM participants WHERE conv_id = ? AND user_id = ?`, convID, uid)
	if err != nil {
		return errors.Wrap(err, "store: delete participant")
	}
	return nil
}

// DeleteConversation removes a conversation and all its messages and
// participant rows, matching storage_delete_conversation's three deletes.
func (s *Store) DeleteConversation(convID uint32) error {
	stmts := []string{
		`DELETE FROM messages WHERE conv_id = ?`,
		`DELETE FROM participants WHERE conv_id = ?`,
		`DELETE FROM conversations WHERE conv_id = ?`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q, convID); err != nil {
			return errors.Wrap(err, "store: delete conversation step %q", q)
		}
	}
	return nil
}

func (s *Store) IsAdmin(convID, uid uint32) (bool, error) {
	var role wire.Role
	err := s.db.QueryRow(`SELECT role FROM participants WHERE conv_id = ? AND user_id = ?`, convID, uid).Scan(&role)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "store: query role")
	}
	return role == wire.RoleAdmin, nil
}

func (s *Store) UpdateGroup(convID uint32, name, desc string) error {
	_, err := s.db.Exec(`UPDATE conversations SET name = ?, description = ? WHERE conv_id = ?`, name, desc, convID)
	if err != nil {
		return errors.Wrap(err, "store: update group")
	}
	return nil
}

// IsParticipant reports whether uid currently belongs to conv_id, used to
// gate SEND_TEXT, REQ_MEMBERS, and REQ_HISTORY against non-members.
func (s *Store) IsParticipant(convID, uid uint32) (bool, error) {
	var x int
	err := s.db.QueryRow(`SELECT 1 FROM participants WHERE conv_id = ? AND user_id = ?`, convID, uid).Scan(&x)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "store: query participation")
	}
	return true, nil
}

// GetUserConversations lists the conversations uid belongs to. PRIVATE
// conversations are named relative to the other participant at read time
// ("Private with <username>"), matching storage_get_user_conversations'
// dynamic naming; GROUP conversations use their stored name/description.
func (s *Store) GetUserConversations(uid uint32) ([]wire.ConversationSummary, error) {
	rows, err := s.db.Query(
		`SELECT c.conv_id, c.type, c.name, c.description, p.role
		 FROM conversations c JOIN participants p ON c.conv_id = p.conv_id
		 WHERE p.user_id = ?`,
		uid,
	)
	if err != nil {
		return nil, errors.Wrap(err, "store: query user conversations")
	}
	defer rows.Close()

	var out []wire.ConversationSummary
	for rows.Next() {
		var cs wire.ConversationSummary
		var storedName, storedDesc string
		if err := rows.Scan(&cs.ConvID, &cs.Type, &storedName, &storedDesc, &cs.MyRole); err != nil {
			return nil, errors.Wrap(err, "store: scan conversation")
		}

		if cs.Type == wire.ConvPrivate {
			other, err := s.otherParticipantUsername(cs.ConvID, uid)
			if err != nil {
				return nil, err
			}
			if other != "" {
				cs.Name = fmt.Sprintf("Private with %s", other)
			} else {
				cs.Name = "Private Chat"
			}
			cs.Description = ""
		} else {
			cs.Name = storedName
			cs.Description = storedDesc
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *Store) otherParticipantUsername(convID, uid uint32) (string, error) {
	var username string
	err := s.db.QueryRow(
		`SELECT u.username FROM participants p JOIN users u ON p.user_id = u.uid
		 WHERE p.conv_id = ? AND p.user_id != ?`,
		convID, uid,
	).Scan(&username)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "store: query other participant")
	}
	return username, nil
}

func (s *Store) GetConvParticipants(convID uint32) ([]uint32, error) {
	rows, err := s.db.Query(`SELECT user_id FROM participants WHERE conv_id = ?`, convID)
	if err != nil {
		return nil, errors.Wrap(err, "store: query participants")
	}
	defer rows.Close()

	var out []uint32
	for rows.Next() {
		var uid uint32
		if err := rows.Scan(&uid); err != nil {
			return nil, errors.Wrap(err, "store: scan participant")
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

func (s *Store) GetGroupMembers(convID uint32) ([]wire.GroupMemberSummary, error) {
	rows, err := s.db.Query(
		`SELECT u.uid, u.username, p.role FROM participants p
		 JOIN users u ON p.user_id = u.uid WHERE p.conv_id = ?`,
		convID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "store: query group members")
	}
	defer rows.Close()

	var out []wire.GroupMemberSummary
	for rows.Next() {
		var gm wire.GroupMemberSummary
		if err := rows.Scan(&gm.UID, &gm.Username, &gm.Role); err != nil {
			return nil, errors.Wrap(err, "store: scan group member")
		}
		out = append(out, gm)
	}
	return out, rows.Err()
}

// --- Messaging ---

// LogMessage encrypts text with the store's box and appends it to the
// messages table with the current time as its timestamp.
func (s *Store) LogMessage(convID, senderUID uint32, text string) error {
	encrypted, err := s.box.Encrypt(text)
	if err != nil {
		return errors.Wrap(err, "store: encrypt message")
	}
	_, err = s.db.Exec(
		`INSERT INTO messages (conv_id, sender_id, text, timestamp) VALUES (?, ?, ?, ?)`,
		convID, senderUID, encrypted, time.Now().Unix(),
	)
	if err != nil {
		return errors.Wrap(err, "store: insert message")
	}
	return nil
}

const historyWindow = 50

// GetHistory renders the most recent historyWindow messages of a
// conversation, oldest first, as "[HH:MM] <username>: <text>\n" lines. A
// message whose ciphertext fails to decrypt is rendered with
// cryptobox.Placeholder instead of aborting the whole call.
func (s *Store) GetHistory(convID uint32) (string, error) {
	rows, err := s.db.Query(
		`SELECT username, text, timestamp FROM (
			SELECT u.username AS username, m.text AS text, m.timestamp AS timestamp, m.id AS id
			 FROM messages m JOIN users u ON m.sender_id = u.uid
			 WHERE m.conv_id = ? ORDER BY m.timestamp DESC, m.id DESC LIMIT ?
		 ) ORDER BY timestamp ASC, id ASC`,
		convID, historyWindow,
	)
	if err != nil {
		return "", errors.Wrap(err, "store: query history")
	}
	defer rows.Close()

	var out []byte
	for rows.Next() {
		var username, encrypted string
		var ts int64
		if err := rows.Scan(&username, &encrypted, &ts); err != nil {
			return "", errors.Wrap(err, "store: scan history row")
		}
		text := s.box.Decrypt(encrypted)
		t := time.Unix(ts, 0).Local()
		out = append(out, []byte(fmt.Sprintf("[%02d:%02d] %s: %s\n", t.Hour(), t.Minute(), username, text))...)
	}
	if err := rows.Err(); err != nil {
		return "", errors.Wrap(err, "store: iterate history")
	}
	return string(out), nil
}
