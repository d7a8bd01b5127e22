package service

import (
	"context"
	"testing"

	"roundbets/events"
	"roundbets/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoundService_CreateRound(t *testing.T) {
	ctx := context.Background()
	params := models.NewRound{Title: " Final ", OptionA: "Home", OptionB: "Away", Description: "Cup final"}

	t.Run("admin creates round", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("Create", ctx, mock.MatchedBy(func(r *models.Round) bool {
			return r.Title == "Final" && r.OptionA == "Home" && r.OptionB == "Away" &&
				r.Status == models.RoundStatusOpen && !r.Locked &&
				r.Description != nil && *r.Description == "Cup final"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Round).ID = TestRoundID
		}).Return(nil)

		round, err := svc.CreateRound(ctx, adminActor(), params)

		require.NoError(t, err)
		assert.Equal(t, TestRoundID, round.ID)
		assert.Equal(t, models.RoundStateOpen, round.State())

		published := m.uow.Events().OfType(events.EventTypeRoundCreated)
		require.Len(t, published, 1)
		assert.Equal(t, TestRoundID, published[0].(events.RoundCreatedEvent).RoundID)
		m.assertExpectations(t)
	})

	t.Run("blank description is stored as null", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("Create", ctx, mock.MatchedBy(func(r *models.Round) bool {
			return r.Description == nil
		})).Return(nil)

		_, err := svc.CreateRound(ctx, adminActor(), models.NewRound{Title: "T", OptionA: "A", OptionB: "B", Description: "   "})

		require.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewRoundService(m.factory, testAuthorizer())

		_, err := svc.CreateRound(ctx, nil, params)

		assert.ErrorIs(t, err, ErrUnauthorized)
		m.factory.AssertNotCalled(t, "Create")
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewRoundService(m.factory, testAuthorizer())

		_, err := svc.CreateRound(ctx, playerActor(TestAliceID), params)

		assert.ErrorIs(t, err, ErrForbidden)
		m.factory.AssertNotCalled(t, "Create")
		m.rounds.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	for _, tc := range []struct {
		name   string
		params models.NewRound
	}{
		{"missing title", models.NewRound{OptionA: "A", OptionB: "B"}},
		{"missing option A", models.NewRound{Title: "T", OptionA: "  ", OptionB: "B"}},
		{"missing option B", models.NewRound{Title: "T", OptionA: "A"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := newServiceMocks()
			svc := NewRoundService(m.factory, testAuthorizer())

			_, err := svc.CreateRound(ctx, adminActor(), tc.params)

			assert.ErrorIs(t, err, ErrMissingField)
			m.factory.AssertNotCalled(t, "Create")
		})
	}
}

func TestRoundService_SetRoundLock(t *testing.T) {
	ctx := context.Background()

	t.Run("lock open round", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusOpen, false), nil)
		m.rounds.On("SetLocked", ctx, TestRoundID, true).Return(nil)

		round, err := svc.SetRoundLock(ctx, adminActor(), TestRoundID, true)

		require.NoError(t, err)
		assert.True(t, round.Locked)
		assert.Equal(t, models.RoundStateLocked, round.State())
		published := m.uow.Events().OfType(events.EventTypeRoundLockChanged)
		require.Len(t, published, 1)
		assert.True(t, published[0].(events.RoundLockChangedEvent).Locked)
		m.assertExpectations(t)
	})

	t.Run("unlock locked round", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusOpen, true), nil)
		m.rounds.On("SetLocked", ctx, TestRoundID, false).Return(nil)

		round, err := svc.SetRoundLock(ctx, adminActor(), TestRoundID, false)

		require.NoError(t, err)
		assert.False(t, round.Locked)
		m.assertExpectations(t)
	})

	t.Run("setting current value is a no-op", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusOpen, true), nil)

		round, err := svc.SetRoundLock(ctx, adminActor(), TestRoundID, true)

		require.NoError(t, err)
		assert.True(t, round.Locked)
		m.rounds.AssertNotCalled(t, "SetLocked", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, m.uow.Events().Events)
	})

	t.Run("round not found", func(t *testing.T) {
		m := newServiceMocks()
		m.expectReadOnlyTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(nil, nil)

		_, err := svc.SetRoundLock(ctx, adminActor(), TestRoundID, true)

		assert.ErrorIs(t, err, ErrRoundNotFound)
		m.assertExpectations(t)
	})

	t.Run("settled round cannot change", func(t *testing.T) {
		m := newServiceMocks()
		m.expectReadOnlyTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusSettled, false), nil)

		_, err := svc.SetRoundLock(ctx, adminActor(), TestRoundID, true)

		assert.ErrorIs(t, err, ErrInvalidLifecycleTransition)
		m.rounds.AssertNotCalled(t, "SetLocked", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewRoundService(m.factory, testAuthorizer())

		_, err := svc.SetRoundLock(ctx, playerActor(TestAliceID), TestRoundID, true)

		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestRoundService_SettleRound(t *testing.T) {
	ctx := context.Background()

	t.Run("single bettor gets stake back", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		bet := createTestBet("b1", TestAliceID, models.OptionA, 30)
		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusOpen, true), nil)
		m.bets.On("GetByRound", ctx, TestRoundID).Return([]*models.Bet{bet}, nil)
		m.bets.On("UpdatePayouts", ctx, map[string]int64{"b1": 30}).Return(nil)
		m.users.On("AddCredits", ctx, TestAliceID, int64(30)).Return(int64(100), nil)
		m.ledger.On("Record", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
			return e.UserID == TestAliceID && e.CreditsBefore == 70 && e.CreditsAfter == 100 &&
				e.ChangeAmount == 30 && e.EntryType == models.LedgerEntryRoundPayout &&
				*e.RoundID == TestRoundID && *e.BetID == "b1"
		})).Return(nil)
		m.rounds.On("MarkSettled", ctx, TestRoundID, models.OptionA, mock.AnythingOfType("time.Time")).Return(nil)

		result, err := svc.SettleRound(ctx, adminActor(), TestRoundID, models.OptionA)

		require.NoError(t, err)
		assert.Equal(t, int64(30), result.Payouts["b1"])
		assert.Equal(t, models.RoundStatusSettled, result.Round.Status)
		require.NotNil(t, result.Round.Winner)
		assert.Equal(t, models.OptionA, *result.Round.Winner)
		assert.NotNil(t, result.Round.SettledAt)
		require.NotNil(t, bet.Payout)
		assert.Equal(t, int64(30), *bet.Payout)

		settled := m.uow.Events().OfType(events.EventTypeRoundSettled)
		require.Len(t, settled, 1)
		ev := settled[0].(events.RoundSettledEvent)
		assert.Equal(t, "Home", ev.WinnerLabel)
		assert.Equal(t, int64(30), ev.TotalPool)
		assert.Len(t, m.uow.Events().OfType(events.EventTypeCreditsChanged), 1)
		m.assertExpectations(t)
	})

	t.Run("winner takes both pools and loser gets zero", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		bets := []*models.Bet{
			createTestBet("b1", TestAliceID, models.OptionA, 40),
			createTestBet("b2", TestBobID, models.OptionB, 60),
		}
		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusOpen, false), nil)
		m.bets.On("GetByRound", ctx, TestRoundID).Return(bets, nil)
		m.bets.On("UpdatePayouts", ctx, map[string]int64{"b1": 100, "b2": 0}).Return(nil)
		m.users.On("AddCredits", ctx, TestAliceID, int64(100)).Return(int64(160), nil)
		m.ledger.On("Record", ctx, mock.Anything).Return(nil)
		m.rounds.On("MarkSettled", ctx, TestRoundID, models.OptionA, mock.AnythingOfType("time.Time")).Return(nil)

		result, err := svc.SettleRound(ctx, adminActor(), TestRoundID, models.OptionA)

		require.NoError(t, err)
		assert.Equal(t, int64(100), result.Payouts["b1"])
		assert.Equal(t, int64(0), result.Payouts["b2"])
		assert.Equal(t, int64(0), *bets[1].Payout)
		m.users.AssertNotCalled(t, "AddCredits", mock.Anything, TestBobID, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("winners are credited in ascending user order", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		bets := []*models.Bet{
			createTestBet("b3", TestCarolID, models.OptionB, 10),
			createTestBet("b1", TestAliceID, models.OptionB, 10),
			createTestBet("b2", TestBobID, models.OptionB, 10),
			createTestBet("b4", TestAdminID, models.OptionA, 30),
		}
		var order []string
		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusOpen, false), nil)
		m.bets.On("GetByRound", ctx, TestRoundID).Return(bets, nil)
		m.bets.On("UpdatePayouts", ctx, mock.Anything).Return(nil)
		m.users.On("AddCredits", ctx, mock.Anything, int64(20)).Run(func(args mock.Arguments) {
			order = append(order, args.String(1))
		}).Return(int64(20), nil)
		m.ledger.On("Record", ctx, mock.Anything).Return(nil)
		m.rounds.On("MarkSettled", ctx, TestRoundID, models.OptionB, mock.AnythingOfType("time.Time")).Return(nil)

		_, err := svc.SettleRound(ctx, adminActor(), TestRoundID, models.OptionB)

		require.NoError(t, err)
		assert.Equal(t, []string{TestAliceID, TestBobID, TestCarolID}, order)
	})

	t.Run("no winners settles with zero payouts", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		bets := []*models.Bet{
			createTestBet("b1", TestAliceID, models.OptionB, 25),
			createTestBet("b2", TestBobID, models.OptionB, 75),
		}
		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusOpen, false), nil)
		m.bets.On("GetByRound", ctx, TestRoundID).Return(bets, nil)
		m.bets.On("UpdatePayouts", ctx, map[string]int64{"b1": 0, "b2": 0}).Return(nil)
		m.rounds.On("MarkSettled", ctx, TestRoundID, models.OptionA, mock.AnythingOfType("time.Time")).Return(nil)

		result, err := svc.SettleRound(ctx, adminActor(), TestRoundID, models.OptionA)

		require.NoError(t, err)
		assert.True(t, result.NoWinners)
		m.users.AssertNotCalled(t, "AddCredits", mock.Anything, mock.Anything, mock.Anything)
		m.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		assert.True(t, m.uow.Events().OfType(events.EventTypeRoundSettled)[0].(events.RoundSettledEvent).NoWinners)
		m.assertExpectations(t)
	})

	t.Run("round without bets", func(t *testing.T) {
		m := newServiceMocks()
		m.expectTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusOpen, false), nil)
		m.bets.On("GetByRound", ctx, TestRoundID).Return([]*models.Bet{}, nil)
		m.rounds.On("MarkSettled", ctx, TestRoundID, models.OptionB, mock.AnythingOfType("time.Time")).Return(nil)

		result, err := svc.SettleRound(ctx, adminActor(), TestRoundID, models.OptionB)

		require.NoError(t, err)
		assert.Equal(t, int64(0), result.TotalPool)
		m.bets.AssertNotCalled(t, "UpdatePayouts", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("second settle is rejected", func(t *testing.T) {
		m := newServiceMocks()
		m.expectReadOnlyTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusSettled, false), nil)

		_, err := svc.SettleRound(ctx, adminActor(), TestRoundID, models.OptionA)

		assert.ErrorIs(t, err, ErrRoundNotActive)
		m.bets.AssertNotCalled(t, "GetByRound", mock.Anything, mock.Anything)
		m.bets.AssertNotCalled(t, "UpdatePayouts", mock.Anything, mock.Anything)
		m.users.AssertNotCalled(t, "AddCredits", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("guarded settle maps to round not active", func(t *testing.T) {
		m := newServiceMocks()
		m.expectReadOnlyTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, models.RoundStatusOpen, false), nil)
		m.bets.On("GetByRound", ctx, TestRoundID).Return([]*models.Bet{}, nil)
		m.rounds.On("MarkSettled", ctx, TestRoundID, models.OptionA, mock.AnythingOfType("time.Time")).Return(ErrRoundAlreadySettled)

		_, err := svc.SettleRound(ctx, adminActor(), TestRoundID, models.OptionA)

		assert.ErrorIs(t, err, ErrRoundNotActive)
		m.uow.AssertNotCalled(t, "Commit")
	})

	t.Run("round not found", func(t *testing.T) {
		m := newServiceMocks()
		m.expectReadOnlyTx()
		svc := NewRoundService(m.factory, testAuthorizer())

		m.rounds.On("GetByIDForUpdate", ctx, TestRoundID).Return(nil, nil)

		_, err := svc.SettleRound(ctx, adminActor(), TestRoundID, models.OptionA)

		assert.ErrorIs(t, err, ErrRoundNotFound)
	})

	t.Run("invalid winner", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewRoundService(m.factory, testAuthorizer())

		_, err := svc.SettleRound(ctx, adminActor(), TestRoundID, models.Option("draw"))

		assert.ErrorIs(t, err, ErrInvalidOption)
		m.factory.AssertNotCalled(t, "Create")
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewRoundService(m.factory, testAuthorizer())

		_, err := svc.SettleRound(ctx, playerActor(TestAliceID), TestRoundID, models.OptionA)

		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestRoundService_ListRounds(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	m.expectReadOnlyTx()
	svc := NewRoundService(m.factory, testAuthorizer())

	summaries := []*models.RoundSummary{
		{Round: createTestRound("r2", models.RoundStatusOpen, false), BetCount: 2, PoolA: 40, PoolB: 60},
		{Round: createTestRound("r1", models.RoundStatusSettled, false)},
	}
	m.rounds.On("ListSummaries", ctx).Return(summaries, nil)

	got, err := svc.ListRounds(ctx)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(100), got[0].TotalPool())
	m.assertExpectations(t)
}
