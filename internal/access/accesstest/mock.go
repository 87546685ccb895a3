// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package accesstest provides AccessControl doubles for tests.
package accesstest

import (
	"context"
	"sync"

	"github.com/holomush/hitreg/internal/access"
)

// AllowAll permits every request.
type AllowAll struct{}

func (AllowAll) Check(context.Context, string, string, string) bool { return true }

// DenyAll refuses every request.
type DenyAll struct{}

func (DenyAll) Check(context.Context, string, string, string) bool { return false }

type grant struct {
	subject, action, resource string
}

// MockAccessControl permits exactly the grants recorded on it. It is safe
// for concurrent use.
type MockAccessControl struct {
	mu     sync.RWMutex
	grants map[grant]struct{}
}

func NewMockAccessControl() *MockAccessControl {
	return &MockAccessControl{grants: map[grant]struct{}{}}
}

// Grant permits subject to perform action on resource.
func (m *MockAccessControl) Grant(subject, action, resource string) {
	m.mu.Lock()
	m.grants[grant{subject, action, resource}] = struct{}{}
	m.mu.Unlock()
}

// Revoke withdraws a grant made by Grant.
func (m *MockAccessControl) Revoke(subject, action, resource string) {
	m.mu.Lock()
	delete(m.grants, grant{subject, action, resource})
	m.mu.Unlock()
}

func (m *MockAccessControl) Check(_ context.Context, subject, action, resource string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.grants[grant{subject, action, resource}]
	return ok
}

var (
	_ access.AccessControl = AllowAll{}
	_ access.AccessControl = DenyAll{}
	_ access.AccessControl = (*MockAccessControl)(nil)
)
