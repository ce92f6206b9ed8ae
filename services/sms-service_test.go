package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contact-manager/auth"
	"contact-manager/model"
)

func newSMSService(t *testing.T) *SMSService {
	t.Helper()
	contacts := newContactService(t)
	return &SMSService{DB: contacts.DB, Contacts: contacts, Log: zap.NewNop()}
}

func seedContacts(t *testing.T, s *SMSService, userID string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := s.Contacts.Create(ctx, userID, ContactInput{FullName: "C"})
		require.NoError(t, err)
	}
}

func TestCreateRequest(t *testing.T) {
	s := newSMSService(t)
	ctx := context.Background()
	seedContacts(t, s, "owner-1", 5)

	req, err := s.CreateRequest(ctx, "owner-1", SMSRequestInput{Message: "hola", ContactsQty: 5})
	require.NoError(t, err)
	assert.Equal(t, model.SMSStatusPending, req.Status)
	assert.Equal(t, 5*PricePerSMS, req.Price)
}

func TestCreateRequestValidation(t *testing.T) {
	s := newSMSService(t)
	ctx := context.Background()
	seedContacts(t, s, "owner-1", 2)

	cases := []struct {
		name string
		in   SMSRequestInput
	}{
		{"empty message", SMSRequestInput{Message: "", ContactsQty: 1}},
		{"message too long", SMSRequestInput{Message: strings.Repeat("x", 161), ContactsQty: 1}},
		{"zero quantity", SMSRequestInput{Message: "hola", ContactsQty: 0}},
		{"negative quantity", SMSRequestInput{Message: "hola", ContactsQty: -3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateRequest(ctx, "owner-1", tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// Exactly 160 characters is fine.
	_, err := s.CreateRequest(ctx, "owner-1", SMSRequestInput{Message: strings.Repeat("x", 160), ContactsQty: 1})
	assert.NoError(t, err)
}

func TestCreateRequestQuantityCheckedServerSide(t *testing.T) {
	s := newSMSService(t)
	ctx := context.Background()
	seedContacts(t, s, "owner-1", 3)

	_, err := s.CreateRequest(ctx, "owner-1", SMSRequestInput{Message: "hola", ContactsQty: 4})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateRequest(ctx, "owner-1", SMSRequestInput{Message: "hola", ContactsQty: 3})
	assert.NoError(t, err)
}

func TestCancel(t *testing.T) {
	s := newSMSService(t)
	ctx := context.Background()
	seedContacts(t, s, "owner-1", 1)

	req, err := s.CreateRequest(ctx, "owner-1", SMSRequestInput{Message: "hola", ContactsQty: 1})
	require.NoError(t, err)

	// Someone else's request reads as absent.
	assert.ErrorIs(t, s.Cancel(ctx, "owner-2", req.ID), ErrNotFound)

	require.NoError(t, s.Cancel(ctx, "owner-1", req.ID))

	var got model.SMSRequest
	require.NoError(t, s.DB.First(&got, "id = ?", req.ID).Error)
	assert.Equal(t, model.SMSStatusCancelled, got.Status)

	// Cancelling twice fails: the request is no longer pending.
	assert.ErrorIs(t, s.Cancel(ctx, "owner-1", req.ID), ErrNotFound)
}

func TestSetStatus(t *testing.T) {
	s := newSMSService(t)
	ctx := context.Background()
	seedContacts(t, s, "owner-1", 1)
	admin := auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}

	req, err := s.CreateRequest(ctx, "owner-1", SMSRequestInput{Message: "hola", ContactsQty: 1})
	require.NoError(t, err)

	_, err = s.SetStatus(ctx, auth.Identity{UserID: "owner-1", Role: auth.RoleUser}, req.ID, model.SMSStatusCompleted, false)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = s.SetStatus(ctx, admin, req.ID, "shipped", false)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := s.SetStatus(ctx, admin, req.ID, model.SMSStatusCompleted, false)
	require.NoError(t, err)
	assert.Equal(t, model.SMSStatusCompleted, got.Status)

	// Terminal without override: conflict.
	_, err = s.SetStatus(ctx, admin, req.ID, model.SMSStatusCancelled, false)
	assert.ErrorIs(t, err, ErrConflict)

	// Admin override moves it anyway.
	got, err = s.SetStatus(ctx, admin, req.ID, model.SMSStatusCancelled, true)
	require.NoError(t, err)
	assert.Equal(t, model.SMSStatusCancelled, got.Status)
}

func TestListByUser(t *testing.T) {
	s := newSMSService(t)
	ctx := context.Background()
	seedContacts(t, s, "owner-1", 2)
	seedContacts(t, s, "owner-2", 1)

	_, err := s.CreateRequest(ctx, "owner-1", SMSRequestInput{Message: "uno", ContactsQty: 1})
	require.NoError(t, err)
	_, err = s.CreateRequest(ctx, "owner-1", SMSRequestInput{Message: "dos", ContactsQty: 2})
	require.NoError(t, err)
	_, err = s.CreateRequest(ctx, "owner-2", SMSRequestInput{Message: "ajeno", ContactsQty: 1})
	require.NoError(t, err)

	mine, err := s.ListByUser(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = s.AdminList(ctx, auth.Identity{UserID: "owner-1", Role: auth.RoleUser})
	assert.ErrorIs(t, err, ErrUnauthorized)

	all, err := s.AdminList(ctx, auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
