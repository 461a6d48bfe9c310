package store

import (
	"context"
	"errors"
	"sync"
)

// Key is the well-known name the resume token is stored under.
const Key = "gameSession"

var ErrNoToken = errors.New("no resume token stored")

// Token is the membership a client tries to restore after reconnecting.
type Token struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// TokenStore persists at most one Token. Save overwrites, Delete of a
// missing token is not an error.
type TokenStore interface {
	Load(ctx context.Context) (Token, error)
	Save(ctx context.Context, tok Token) error
	Delete(ctx context.Context) error
	Close() error
}

type Memory struct {
	mu  sync.Mutex
	tok *Token
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == nil {
		return Token{}, ErrNoToken
	}
	return *m.tok, nil
}

func (m *Memory) Save(_ context.Context, tok Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = &tok
	return nil
}

func (m *Memory) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = nil
	return nil
}

func (m *Memory) Close() error { return nil }
