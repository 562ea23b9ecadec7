package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pack-portal/internal/event"
	"pack-portal/internal/model"
	"pack-portal/pkg/apierror"
)

type claimFixture struct {
	packs   *MockPackStore
	claims  *MockClaimStore
	members *MockMemberResolver
	codec   *TokenCodec
	bus     *event.InMemoryBus
	events  <-chan event.Event
	svc     *ClaimService
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()

	f := &claimFixture{
		packs:   new(MockPackStore),
		claims:  new(MockClaimStore),
		members: new(MockMemberResolver),
		codec:   newTestCodec(t, time.Now()),
		bus:     event.NewBus(),
	}

	events, unsubscribe := f.bus.Subscribe()
	t.Cleanup(unsubscribe)
	f.events = events

	f.svc = NewClaimService(f.packs, f.claims, f.members, f.codec, f.bus)
	return f
}

func (f *claimFixture) publishedEvents() []event.Event {
	var out []event.Event
	for {
		select {
		case evt := <-f.events:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func requireAPIError(t *testing.T, err error, status int) *apierror.APIError {
	t.Helper()

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.HTTPStatus)
	return apiErr
}

var p1 = model.Pack{ID: "P1", Title: "ChatGPT×ブログ入門ガイド", FileURL: "guides/p1.pdf", FileSize: 2048}

func TestDeriveUserID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "discord_123456789012345678_alice", DeriveUserID("123456789012345678", "Alice"))
	assert.Equal(t, "discord_1_john_doe_99", DeriveUserID("1", "John.Doe-99"))
	assert.Equal(t, "discord_1___", DeriveUserID("1", "太郎"))
	assert.Equal(t, "discord_1_a__b", DeriveUserID("1", "a😀b"))
	assert.Equal(t, "discord_1_____", DeriveUserID("1", "🎉🎉"))
}

func TestClaimService_Issue(t *testing.T) {
	t.Run("end to end with case-insensitive username", func(t *testing.T) {
		f := newClaimFixture(t)
		userID := "discord_123456789012345678_alice"

		f.packs.On("GetByID", mock.Anything, "P1").Return(p1, nil)
		f.members.On("ResolveMember", mock.Anything, "123456789012345678").
			Return(model.MemberLookup{Status: model.LookupFound, Username: "alice"})
		f.claims.On("FindByPackAndUser", mock.Anything, "P1", userID).Return(model.Claim{}, model.ErrClaimNotFound)
		f.claims.On("Create", mock.Anything, mock.MatchedBy(func(c model.Claim) bool {
			return c.PackID == "P1" && c.UserID == userID && c.DiscordUsername == "Alice" && c.ID != ""
		})).Return(nil)

		result, err := f.svc.Issue(context.Background(), model.ClaimRequest{
			PackID: " P1 ", DiscordUserID: "123456789012345678", DiscordUsername: "Alice",
		})
		require.NoError(t, err)
		assert.True(t, result.Created)
		assert.NotEmpty(t, result.ClaimID)

		grant, err := f.codec.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "P1", grant.PackID)
		assert.Equal(t, result.ClaimID, grant.ClaimID)
		assert.Equal(t, userID, grant.UserID)
		assert.Equal(t, "Alice", grant.DiscordUsername)

		published := f.publishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, event.TypeClaimCreated, published[0].Type)
		payload := published[0].Payload.(event.ClaimCreated)
		assert.Equal(t, result.ClaimID, payload.ClaimID)
		assert.Equal(t, p1.Title, payload.PackTitle)

		f.claims.AssertExpectations(t)
	})

	t.Run("second claim reuses the stored claim without notifying", func(t *testing.T) {
		f := newClaimFixture(t)
		existing := model.Claim{ID: "c-existing", PackID: "P1", UserID: "discord_42_bob"}

		f.packs.On("GetByID", mock.Anything, "P1").Return(p1, nil)
		f.members.On("ResolveMember", mock.Anything, "42").Return(model.MemberLookup{Status: model.LookupFound, Username: "bob"})
		f.claims.On("FindByPackAndUser", mock.Anything, "P1", "discord_42_bob").Return(existing, nil)

		result, err := f.svc.Issue(context.Background(), model.ClaimRequest{PackID: "P1", DiscordUserID: "42", DiscordUsername: "bob"})
		require.NoError(t, err)
		assert.False(t, result.Created)
		assert.Equal(t, "c-existing", result.ClaimID)
		assert.Empty(t, f.publishedEvents())

		f.claims.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unique violation resolves to the concurrent claim", func(t *testing.T) {
		f := newClaimFixture(t)
		winner := model.Claim{ID: "c-winner", PackID: "P1", UserID: "discord_42_bob"}

		f.packs.On("GetByID", mock.Anything, "P1").Return(p1, nil)
		f.members.On("ResolveMember", mock.Anything, "42").Return(model.MemberLookup{Status: model.LookupFound, Username: "bob"})
		f.claims.On("FindByPackAndUser", mock.Anything, "P1", "discord_42_bob").Return(model.Claim{}, model.ErrClaimNotFound).Once()
		f.claims.On("Create", mock.Anything, mock.Anything).Return(model.ErrClaimExists)
		f.claims.On("FindByPackAndUser", mock.Anything, "P1", "discord_42_bob").Return(winner, nil).Once()

		result, err := f.svc.Issue(context.Background(), model.ClaimRequest{PackID: "P1", DiscordUserID: "42", DiscordUsername: "bob"})
		require.NoError(t, err)
		assert.Equal(t, "c-winner", result.ClaimID)
		assert.False(t, result.Created)
		assert.Empty(t, f.publishedEvents())
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newClaimFixture(t)

		for _, req := range []model.ClaimRequest{
			{DiscordUserID: "1", DiscordUsername: "a"},
			{PackID: "P1", DiscordUsername: "a"},
			{PackID: "P1", DiscordUserID: "1", DiscordUsername: "   "},
		} {
			_, err := f.svc.Issue(context.Background(), req)
			apiErr := requireAPIError(t, err, http.StatusBadRequest)
			assert.Equal(t, apierror.CodeValidation, apiErr.Code)
		}

		f.packs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown pack", func(t *testing.T) {
		f := newClaimFixture(t)
		f.packs.On("GetByID", mock.Anything, "nope").Return(model.Pack{}, model.ErrPackNotFound)

		_, err := f.svc.Issue(context.Background(), model.ClaimRequest{PackID: "nope", DiscordUserID: "1", DiscordUsername: "a"})
		requireAPIError(t, err, http.StatusNotFound)
		f.members.AssertNotCalled(t, "ResolveMember", mock.Anything, mock.Anything)
	})

	t.Run("pack store failure", func(t *testing.T) {
		f := newClaimFixture(t)
		f.packs.On("GetByID", mock.Anything, "P1").Return(model.Pack{}, errors.New("connection refused"))

		_, err := f.svc.Issue(context.Background(), model.ClaimRequest{PackID: "P1", DiscordUserID: "1", DiscordUsername: "a"})
		apiErr := requireAPIError(t, err, http.StatusInternalServerError)
		assert.Equal(t, apierror.CodePersistence, apiErr.Code)
	})

	t.Run("identity lookup failures cannot verify", func(t *testing.T) {
		for _, status := range []model.LookupStatus{model.LookupNotFound, model.LookupFailed} {
			f := newClaimFixture(t)
			f.packs.On("GetByID", mock.Anything, "P1").Return(p1, nil)
			f.members.On("ResolveMember", mock.Anything, "1").Return(model.MemberLookup{Status: status})

			_, err := f.svc.Issue(context.Background(), model.ClaimRequest{PackID: "P1", DiscordUserID: "1", DiscordUsername: "a"})
			apiErr := requireAPIError(t, err, http.StatusUnauthorized)
			assert.Equal(t, msgDiscordUnverifiable, apiErr.Message)
			f.claims.AssertNotCalled(t, "FindByPackAndUser", mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("username mismatch", func(t *testing.T) {
		f := newClaimFixture(t)
		f.packs.On("GetByID", mock.Anything, "P1").Return(p1, nil)
		f.members.On("ResolveMember", mock.Anything, "1").Return(model.MemberLookup{Status: model.LookupFound, Username: "mallory"})

		_, err := f.svc.Issue(context.Background(), model.ClaimRequest{PackID: "P1", DiscordUserID: "1", DiscordUsername: "alice"})
		apiErr := requireAPIError(t, err, http.StatusUnauthorized)
		assert.Equal(t, msgDiscordMismatch, apiErr.Message)
	})

	t.Run("premium gate", func(t *testing.T) {
		premium := model.Pack{ID: "PX", Title: "Premium", IsPremium: true}

		f := newClaimFixture(t)
		f.packs.On("GetByID", mock.Anything, "PX").Return(premium, nil)
		f.members.On("ResolveMember", mock.Anything, "1").Return(model.MemberLookup{Status: model.LookupFound, Username: "a"})

		_, err := f.svc.Issue(context.Background(), model.ClaimRequest{PackID: "PX", DiscordUserID: "1", DiscordUsername: "a"})
		requireAPIError(t, err, http.StatusForbidden)

		f = newClaimFixture(t)
		f.packs.On("GetByID", mock.Anything, "PX").Return(premium, nil)
		f.members.On("ResolveMember", mock.Anything, "1").Return(model.MemberLookup{Status: model.LookupFound, Username: "a", Premium: true})
		f.claims.On("FindByPackAndUser", mock.Anything, "PX", "discord_1_a").Return(model.Claim{}, model.ErrClaimNotFound)
		f.claims.On("Create", mock.Anything, mock.Anything).Return(nil)

		result, err := f.svc.Issue(context.Background(), model.ClaimRequest{PackID: "PX", DiscordUserID: "1", DiscordUsername: "a"})
		require.NoError(t, err)
		assert.True(t, result.Created)
	})

	t.Run("insert failure is a persistence error", func(t *testing.T) {
		f := newClaimFixture(t)
		f.packs.On("GetByID", mock.Anything, "P1").Return(p1, nil)
		f.members.On("ResolveMember", mock.Anything, "1").Return(model.MemberLookup{Status: model.LookupFound, Username: "a"})
		f.claims.On("FindByPackAndUser", mock.Anything, "P1", "discord_1_a").Return(model.Claim{}, model.ErrClaimNotFound)
		f.claims.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		_, err := f.svc.Issue(context.Background(), model.ClaimRequest{PackID: "P1", DiscordUserID: "1", DiscordUsername: "a"})
		apiErr := requireAPIError(t, err, http.StatusInternalServerError)
		assert.Equal(t, msgClaimRecordFailed, apiErr.Message)
		assert.Empty(t, f.publishedEvents())
	})
}
