package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sabitax/internal/apperr"
	"sabitax/internal/lifecycle"
	"sabitax/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tinFixture struct {
	svc    *tinService
	apps   *fakeTins
	audit  *fakeAudit
	events *recordingPublisher
}

func newTinFixture(t *testing.T) tinFixture {
	t.Helper()
	f := tinFixture{apps: newFakeTins(), audit: &fakeAudit{}, events: &recordingPublisher{}}
	f.svc = NewTinService(&fakeTx{}, f.apps, f.audit, f.events, []byte("test-key"), zerolog.Nop()).(*tinService)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func validApplication() TinApplyRequest {
	return TinApplyRequest{
		NIN:           "12345678901",
		DateOfBirth:   "1990-05-14",
		IDDocumentURL: "s3://kyc/ids/abc.png",
	}
}

func (f tinFixture) status(t *testing.T, ref, status, tin, reason string) (TinApplicationResponse, error) {
	t.Helper()
	return f.svc.ProcessStatus(context.Background(), TinStatusUpdate{ReferenceNumber: ref, Status: status, TIN: tin, Reason: reason})
}

func TestApplyTin(t *testing.T) {
	f := newTinFixture(t)
	userID := uuid.New()

	got, err := f.svc.Apply(context.Background(), userID, validApplication())
	require.NoError(t, err)

	assert.Regexp(t, `^TIN-2026-[0-9A-F]{8}$`, got.ReferenceNumber)
	assert.Equal(t, string(model.TinSubmitted), got.Status)
	assert.Equal(t, EstimatedCompletion, got.EstimatedCompletion)
	assert.Equal(t, "8901", got.NINLastDigits)
	assert.Nil(t, got.TIN)

	stored, err := f.apps.FindByID(context.Background(), uuid.MustParse(got.ApplicationID))
	require.NoError(t, err)
	assert.Len(t, stored.NINFingerprint, 64)
	assert.NotContains(t, stored.NINFingerprint, "12345678901")

	assert.Equal(t, []string{model.ActionApplyTin}, f.audit.actions())
	assert.Equal(t, []string{EventTinSubmitted}, f.events.types())
}

func TestApplyTinFingerprintIsStable(t *testing.T) {
	f := newTinFixture(t)
	a, err := f.svc.fingerprint("12345678901")
	require.NoError(t, err)
	b, err := f.svc.fingerprint("12345678901")
	require.NoError(t, err)
	c, err := f.svc.fingerprint("12345678902")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestApplyTinValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TinApplyRequest)
	}{
		{"short nin", func(r *TinApplyRequest) { r.NIN = "1234567890" }},
		{"non-digit nin", func(r *TinApplyRequest) { r.NIN = "1234567890A" }},
		{"bad date", func(r *TinApplyRequest) { r.DateOfBirth = "14/05/1990" }},
		{"future date", func(r *TinApplyRequest) { r.DateOfBirth = "2030-01-01" }},
		{"missing document", func(r *TinApplyRequest) { r.IDDocumentURL = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTinFixture(t)
			req := validApplication()
			tt.mutate(&req)

			_, err := f.svc.Apply(context.Background(), uuid.New(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
		})
	}
}

func TestApplyTinConflictsWhileOpen(t *testing.T) {
	f := newTinFixture(t)
	userID := uuid.New()

	first, err := f.svc.Apply(context.Background(), userID, validApplication())
	require.NoError(t, err)

	_, err = f.svc.Apply(context.Background(), userID, validApplication())
	assert.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)

	_, err = f.status(t, first.ReferenceNumber, "processing", "", "")
	require.NoError(t, err)
	_, err = f.svc.Apply(context.Background(), userID, validApplication())
	assert.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)

	// other users are unaffected
	_, err = f.svc.Apply(context.Background(), uuid.New(), validApplication())
	require.NoError(t, err)
}

func TestTinVerifiedIsMaskedAndFinal(t *testing.T) {
	f := newTinFixture(t)
	userID := uuid.New()

	app, err := f.svc.Apply(context.Background(), userID, validApplication())
	require.NoError(t, err)
	_, err = f.status(t, app.ReferenceNumber, "processing", "", "")
	require.NoError(t, err)

	verified, err := f.status(t, app.ReferenceNumber, "verified", "22134567890", "")
	require.NoError(t, err)
	require.NotNil(t, verified.TIN)
	assert.Equal(t, "221***90", *verified.TIN)

	status, err := f.svc.GetStatus(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, status.HasTIN)
	assert.Equal(t, "221***90", *status.TIN)
	assert.Equal(t, string(model.TinVerified), status.Status)

	_, err = f.svc.Apply(context.Background(), userID, validApplication())
	assert.True(t, errors.Is(err, apperr.ErrConflict), "verified TIN blocks a new application")

	_, err = f.status(t, app.ReferenceNumber, "rejected", "", "duplicate")
	assert.Equal(t, apperr.KindExternalAck, apperr.KindOf(err))

	_, err = f.svc.AttachDocument(context.Background(), userID, uuid.MustParse(app.ApplicationID), TinDocumentRequest{DocumentType: DocumentUtilityBill, DocumentURL: "s3://x"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	assert.Equal(t, []string{model.ActionApplyTin, model.ActionProcessTin, model.ActionVerifyTin}, f.audit.actions())
	assert.Equal(t, []string{EventTinSubmitted, EventTinUpdated, EventTinUpdated}, f.events.types())
}

func TestTinRejectedAllowsNewApplication(t *testing.T) {
	f := newTinFixture(t)
	userID := uuid.New()

	app, err := f.svc.Apply(context.Background(), userID, validApplication())
	require.NoError(t, err)
	_, err = f.status(t, app.ReferenceNumber, "processing", "", "")
	require.NoError(t, err)
	rejected, err := f.status(t, app.ReferenceNumber, "REJECTED", "", "ID document unreadable")
	require.NoError(t, err)
	assert.Equal(t, "ID document unreadable", rejected.RejectionReason)

	status, err := f.svc.GetStatus(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, status.HasTIN)
	assert.Equal(t, string(model.TinRejected), status.Status)

	f.svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	again, err := f.svc.Apply(context.Background(), userID, validApplication())
	require.NoError(t, err)
	assert.NotEqual(t, app.ReferenceNumber, again.ReferenceNumber)

	status, err = f.svc.GetStatus(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, string(model.TinSubmitted), status.Status)
	assert.Equal(t, again.ApplicationID, *status.ApplicationID)
}

func TestTinStatusUpdateMalformed(t *testing.T) {
	f := newTinFixture(t)
	app, err := f.svc.Apply(context.Background(), uuid.New(), validApplication())
	require.NoError(t, err)
	ref := app.ReferenceNumber

	tests := []struct {
		name, ref, status, tin, reason string
	}{
		{"unknown reference", "TIN-2026-00000000", "processing", "", ""},
		{"unknown status", ref, "approved", "", ""},
		{"back to submitted", ref, "submitted", "", ""},
		{"skips processing", ref, "verified", "22134567890", ""},
		{"verified without tin", ref, "verified", "", ""},
		{"rejected without reason", ref, "rejected", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.status(t, tt.ref, tt.status, tt.tin, tt.reason)
			require.Error(t, err)
			assert.Equal(t, apperr.KindExternalAck, apperr.KindOf(err))
		})
	}

	stored, err := f.apps.FindByReference(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, model.TinSubmitted, stored.Status)
}

func TestAttachDocument(t *testing.T) {
	f := newTinFixture(t)
	userID := uuid.New()
	app, err := f.svc.Apply(context.Background(), userID, validApplication())
	require.NoError(t, err)
	id := uuid.MustParse(app.ApplicationID)

	got, err := f.svc.AttachDocument(context.Background(), userID, id, TinDocumentRequest{DocumentType: DocumentUtilityBill, DocumentURL: "s3://kyc/bills/1.pdf"})
	require.NoError(t, err)
	assert.True(t, got.HasUtilityBill)

	_, err = f.svc.AttachDocument(context.Background(), userID, id, TinDocumentRequest{DocumentType: DocumentID, DocumentURL: "s3://kyc/ids/new.png"})
	require.NoError(t, err)
	stored, err := f.apps.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "s3://kyc/ids/new.png", stored.IDDocumentRef)

	_, err = f.svc.AttachDocument(context.Background(), uuid.New(), id, TinDocumentRequest{DocumentType: DocumentID, DocumentURL: "s3://x"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.AttachDocument(context.Background(), userID, id, TinDocumentRequest{DocumentType: "passport", DocumentURL: "s3://x"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestGetStatusWithoutApplication(t *testing.T) {
	f := newTinFixture(t)

	got, err := f.svc.GetStatus(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, got.HasTIN)
	assert.Equal(t, "none", got.Status)
	assert.Nil(t, got.TIN)
	assert.Nil(t, got.AppliedAt)
}

func TestGetApplicationOwnership(t *testing.T) {
	f := newTinFixture(t)
	userID := uuid.New()
	app, err := f.svc.Apply(context.Background(), userID, validApplication())
	require.NoError(t, err)

	got, err := f.svc.GetApplication(context.Background(), userID, uuid.MustParse(app.ApplicationID))
	require.NoError(t, err)
	assert.Equal(t, app.ReferenceNumber, got.ReferenceNumber)

	_, err = f.svc.GetApplication(context.Background(), uuid.New(), uuid.MustParse(app.ApplicationID))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMaskTIN(t *testing.T) {
	tests := map[string]string{
		"22134567890": "221***90",
		"123456":      "123***56",
		"12345":       "*****",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, MaskTIN(in), in)
	}
}

func TestTinMachineRejectsEveryInvalidTransition(t *testing.T) {
	m := NewTinMachine()
	allowed := map[string]bool{
		"submitted->processing": true,
		"processing->verified":  true,
		"processing->rejected":  true,
	}

	states := []model.TinStatus{model.TinSubmitted, model.TinProcessing, model.TinVerified, model.TinRejected}
	assert.ElementsMatch(t, states, m.States())
	for _, from := range states {
		for _, to := range states {
			err := m.Check(from, to)
			if allowed[fmt.Sprintf("%s->%s", from, to)] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "%s -> %s", from, to)
		}
	}
}
