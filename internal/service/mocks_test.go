package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pack-portal/internal/model"
)

type MockPackStore struct {
	mock.Mock
}

func (m *MockPackStore) GetByID(ctx context.Context, id string) (model.Pack, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Pack), args.Error(1)
}

func (m *MockPackStore) List(ctx context.Context, filter model.PackFilter) ([]model.Pack, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Pack), args.Error(1)
}

func (m *MockPackStore) IncrementDownloadCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockClaimStore struct {
	mock.Mock
}

func (m *MockClaimStore) Create(ctx context.Context, claim model.Claim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockClaimStore) GetByID(ctx context.Context, id string) (model.Claim, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Claim), args.Error(1)
}

func (m *MockClaimStore) FindByPackAndUser(ctx context.Context, packID string, userID string) (model.Claim, error) {
	args := m.Called(ctx, packID, userID)
	return args.Get(0).(model.Claim), args.Error(1)
}

type MockDownloadRecorder struct {
	mock.Mock
}

func (m *MockDownloadRecorder) Create(ctx context.Context, d model.Download) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

type MockMemberResolver struct {
	mock.Mock
}

func (m *MockMemberResolver) ResolveMember(ctx context.Context, discordUserID string) model.MemberLookup {
	args := m.Called(ctx, discordUserID)
	return args.Get(0).(model.MemberLookup)
}

type MockStatsReader struct {
	mock.Mock
}

func (m *MockStatsReader) Summary(ctx context.Context, topN int) (model.PortalStats, error) {
	args := m.Called(ctx, topN)
	return args.Get(0).(model.PortalStats), args.Error(1)
}

type MockLineReplier struct {
	mock.Mock
}

func (m *MockLineReplier) Reply(ctx context.Context, replyToken string, messages []model.LineReplyMessage) error {
	args := m.Called(ctx, replyToken, messages)
	return args.Error(0)
}
