// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package auth

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"
)

// # In-Memory Account Repository

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[string]*Account)}
}

func (f *fakeAccounts) Create(_ context.Context, account *Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return ErrDuplicateEmail
		}
	}
	clone := *account
	f.accounts[account.ID] = &clone
	return nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, account := range f.accounts {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, found := f.accounts[id]
	if !found {
		return nil, ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

func (f *fakeAccounts) RecordFailedLogin(_ context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, found := f.accounts[id]
	if !found {
		return 0, nil, ErrAccountNotFound
	}

	account.FailedLoginAttempts++
	if account.FailedLoginAttempts >= maxAttempts {
		deadline := lockUntil
		account.LockUntil = &deadline
	}
	return account.FailedLoginAttempts, account.LockUntil, nil
}

func (f *fakeAccounts) RecordSuccessfulLogin(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, found := f.accounts[id]
	if !found {
		return ErrAccountNotFound
	}
	account.FailedLoginAttempts = 0
	account.LockUntil = nil
	now := time.Now()
	account.LastLoginAt = &now
	return nil
}

func (f *fakeAccounts) MarkEmailVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, found := f.accounts[id]
	if !found {
		return ErrAccountNotFound
	}
	account.IsEmailVerified = true
	account.FailedLoginAttempts = 0
	account.LockUntil = nil
	now := time.Now()
	account.LastLoginAt = &now
	return nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, found := f.accounts[id]
	if !found {
		return ErrAccountNotFound
	}
	account.PasswordHash = passwordHash
	return nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id string, patch ProfilePatch) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, found := f.accounts[id]
	if !found {
		return nil, ErrAccountNotFound
	}
	if patch.Name != nil {
		account.Name = *patch.Name
	}
	if patch.Bio != nil {
		account.Bio = *patch.Bio
	}
	if patch.AvatarURL != nil {
		account.AvatarURL = *patch.AvatarURL
	}
	if patch.AvatarKey != nil {
		account.AvatarKey = *patch.AvatarKey
	}
	clone := *account
	return &clone, nil
}

func (f *fakeAccounts) SoftDelete(_ context.Context, id string, deletedAt, reactivateAvailableAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, found := f.accounts[id]
	if !found || account.IsDeleted {
		return ErrAccountNotFound
	}
	account.IsDeleted = true
	account.DeletedAt = &deletedAt
	account.ReactivateAvailableAt = &reactivateAvailableAt
	return nil
}

func (f *fakeAccounts) Reactivate(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, found := f.accounts[id]
	if !found || !account.IsDeleted {
		return ErrAccountNotFound
	}
	if account.ReactivateAvailableAt != nil && account.ReactivateAvailableAt.After(now) {
		return ErrAccountNotFound
	}
	account.IsDeleted = false
	account.DeletedAt = nil
	account.ReactivateAvailableAt = nil
	return nil
}

func (f *fakeAccounts) HardDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, found := f.accounts[id]; !found {
		return ErrAccountNotFound
	}
	delete(f.accounts, id)
	return nil
}

// mustGet reads an account's current stored state for assertions.
func (f *fakeAccounts) mustGet(t *testing.T, id string) *Account {
	t.Helper()
	account, err := f.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("account %s not found", id)
	}
	return account
}

// # In-Memory OTP Repository

type fakeOtps struct {
	mu      sync.Mutex
	records map[string]*OtpRecord // keyed by email|type
}

func newFakeOtps() *fakeOtps {
	return &fakeOtps{records: make(map[string]*OtpRecord)}
}

func otpKey(email string, otpType OtpType) string {
	return email + "|" + string(otpType)
}

func (f *fakeOtps) Upsert(_ context.Context, record *OtpRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := *record
	f.records[otpKey(record.Email, record.Type)] = &clone
	return nil
}

func (f *fakeOtps) Get(_ context.Context, email string, otpType OtpType) (*OtpRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, found := f.records[otpKey(email, otpType)]
	if !found {
		return nil, ErrOtpNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeOtps) IncrementAttempts(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, record := range f.records {
		if record.ID == id {
			record.Attempts++
			return record.Attempts, nil
		}
	}
	return 0, ErrOtpNotFound
}

func (f *fakeOtps) MarkVerified(_ context.Context, id string, maxAttempts int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, record := range f.records {
		if record.ID == id {
			if record.IsVerified || record.Attempts >= maxAttempts {
				return false, nil
			}
			record.IsVerified = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOtps) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, record := range f.records {
		if record.ID == id {
			delete(f.records, key)
			return nil
		}
	}
	return nil
}

func (f *fakeOtps) PurgeStale(_ context.Context, maxAttempts int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	var purged int64
	for key, record := range f.records {
		if record.IsVerified || record.Attempts >= maxAttempts || record.ExpiresAt.Before(now) {
			delete(f.records, key)
			purged++
		}
	}
	return purged, nil
}

// # Notifier & Blob Fakes

var otpCodeInBody = regexp.MustCompile(`[0-9]{6}`)

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (f *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("smtp unreachable")
	}
	f.sent = append(f.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

// lastCode extracts the raw passcode from the most recent dispatch.
func (f *fakeNotifier) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	code := otpCodeInBody.FindString(f.sent[len(f.sent)-1].Body)
	if code == "" {
		t.Fatal("no code found in message body")
	}
	return code
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) Put(_ context.Context, key, _ string, body io.Reader) (string, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = content
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}
