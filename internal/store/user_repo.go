package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) CreateUser(ctx context.Context, u User) error {
	if s.MemoryMode {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, existing := range s.users {
			if existing.Email == u.Email {
				return fmt.Errorf("user exists")
			}
		}
		s.users[u.ID] = u
		return nil
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if s.MemoryMode {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, u := range s.users {
			if u.Email == email {
				return u, nil
			}
		}
		return User{}, sql.ErrNoRows
	}
	var u User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}
