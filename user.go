package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Auth failure sentinels. Handlers map these onto HTTP statuses; login
// failures share one error so responses never reveal whether the
// username exists.
var (
	ErrUserExists         = errors.New("user already exists")
	ErrReservedUsername   = errors.New("reserved username")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionExpired     = errors.New("session expired")
)

const dataDir = "DATA"

var userPersistenceFile = filepath.Join(dataDir, "users.json")

const sessionTimeout = 1 * time.Hour

type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// AuthSession is one issued login token. Unrelated to EditSession.
type AuthSession struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

type UserManager struct {
	users    map[string]*User
	sessions map[string]*AuthSession // token -> session
	mu       sync.RWMutex
}

var globalUserManager = &UserManager{
	users:    make(map[string]*User),
	sessions: make(map[string]*AuthSession),
}

// Register creates a user with a bcrypt password hash and persists the
// user table. "system" is reserved; the hub signs its own messages with
// it.
func (um *UserManager) Register(username, password string) error {
	if strings.EqualFold(strings.TrimSpace(username), "system") {
		return ErrReservedUsername
	}

	// Hash outside the lock; bcrypt is deliberately slow.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	um.mu.Lock()
	defer um.mu.Unlock()
	if _, exists := um.users[username]; exists {
		return ErrUserExists
	}
	um.users[username] = &User{Username: username, PasswordHash: string(hash)}
	um.saveUsersLocked()
	return nil
}

// Login verifies the password and issues a fresh session token.
func (um *UserManager) Login(username, password string) (string, error) {
	um.mu.RLock()
	user, exists := um.users[username]
	um.mu.RUnlock()
	if !exists {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}
	um.mu.Lock()
	um.sessions[token] = &AuthSession{
		Token:     token,
		Username:  username,
		ExpiresAt: time.Now().Add(sessionTimeout),
	}
	um.mu.Unlock()

	go um.cleanupExpiredSessions()
	return token, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ValidateToken resolves a token to its username. Expired tokens are
// removed on first sight.
func (um *UserManager) ValidateToken(token string) (string, error) {
	um.mu.RLock()
	session, exists := um.sessions[token]
	um.mu.RUnlock()
	if !exists {
		return "", ErrInvalidToken
	}
	if time.Now().After(session.ExpiresAt) {
		um.mu.Lock()
		delete(um.sessions, token)
		um.mu.Unlock()
		return "", ErrSessionExpired
	}
	return session.Username, nil
}

// Logout invalidates a session token.
func (um *UserManager) Logout(token string) {
	um.mu.Lock()
	defer um.mu.Unlock()
	delete(um.sessions, token)
}

// cleanupExpiredSessions sweeps tokens past their expiry. Kicked off on
// each login rather than on a timer; login frequency bounds the garbage.
func (um *UserManager) cleanupExpiredSessions() {
	um.mu.Lock()
	defer um.mu.Unlock()
	now := time.Now()
	for token, session := range um.sessions {
		if now.After(session.ExpiresAt) {
			delete(um.sessions, token)
		}
	}
}

// Exists reports whether a username is registered.
func (um *UserManager) Exists(username string) bool {
	um.mu.RLock()
	defer um.mu.RUnlock()
	_, ok := um.users[username]
	return ok
}

// Load reads the persisted user table. A missing file is a fresh
// install, not an error.
func (um *UserManager) Load() {
	um.mu.Lock()
	defer um.mu.Unlock()

	file, err := os.Open(userPersistenceFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error opening users file: %v", err)
		}
		return
	}
	defer file.Close()

	var loaded map[string]*User
	if err := json.NewDecoder(file).Decode(&loaded); err != nil {
		log.Printf("Error decoding users: %v", err)
		return
	}
	um.users = loaded
	log.Printf("Loaded %d users from disk", len(um.users))
}

// saveUsersLocked writes the user table. Callers hold um.mu.
func (um *UserManager) saveUsersLocked() {
	if err := os.MkdirAll(filepath.Dir(userPersistenceFile), 0755); err != nil {
		log.Printf("Error creating data directory: %v", err)
		return
	}
	file, err := os.Create(userPersistenceFile)
	if err != nil {
		log.Printf("Error saving users: %v", err)
		return
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(um.users); err != nil {
		log.Printf("Error encoding users: %v", err)
	}
}
