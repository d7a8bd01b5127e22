package service

import (
	"testing"
	"time"

	"roundbets/models"

	"github.com/stretchr/testify/mock"
)

// Test identifiers shared across service tests
const (
	TestAdminID   = "00000000-0000-0000-0000-00000000000a"
	TestAliceID   = "00000000-0000-0000-0000-000000000001"
	TestBobID     = "00000000-0000-0000-0000-000000000002"
	TestCarolID   = "00000000-0000-0000-0000-000000000003"
	TestRoundID   = "10000000-0000-0000-0000-000000000001"
	TestAdminMail = "admin@example.com"
)

type serviceMocks struct {
	factory *MockUnitOfWorkFactory
	uow     *MockUnitOfWork
	users   *MockUserRepository
	rounds  *MockRoundRepository
	bets    *MockBetRepository
	ledger  *MockLedgerRepository
}

func newServiceMocks() *serviceMocks {
	m := &serviceMocks{
		factory: new(MockUnitOfWorkFactory),
		uow:     new(MockUnitOfWork),
		users:   new(MockUserRepository),
		rounds:  new(MockRoundRepository),
		bets:    new(MockBetRepository),
		ledger:  new(MockLedgerRepository),
	}
	m.uow.SetRepositories(m.users, m.rounds, m.bets, m.ledger)
	m.factory.On("Create").Return(m.uow)
	return m
}

// expectTx sets up a transaction that is expected to commit
func (m *serviceMocks) expectTx() {
	m.uow.On("Begin", mock.Anything).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
}

// expectReadOnlyTx sets up a transaction that only rolls back
func (m *serviceMocks) expectReadOnlyTx() {
	m.uow.On("Begin", mock.Anything).Return(nil)
	m.uow.On("Rollback").Return(nil)
}

func (m *serviceMocks) assertExpectations(t *testing.T) {
	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.rounds.AssertExpectations(t)
	m.bets.AssertExpectations(t)
	m.ledger.AssertExpectations(t)
}

func adminActor() *models.Actor {
	return &models.Actor{UserID: TestAdminID, Name: "Admin", Email: TestAdminMail}
}

func playerActor(id string) *models.Actor {
	return &models.Actor{UserID: id, Name: "Player", Email: id + "@example.com"}
}

func testAuthorizer() Authorizer {
	return NewEmailAllowList([]string{TestAdminMail})
}

func createTestUser(id string, credits int64) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Name:      "user-" + id[len(id)-1:],
		Email:     id + "@example.com",
		Credits:   credits,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func createTestRound(id string, status models.RoundStatus, locked bool) *models.Round {
	return &models.Round{
		ID:        id,
		Title:     "Who wins?",
		OptionA:   "Home",
		OptionB:   "Away",
		Status:    status,
		Locked:    locked,
		CreatedAt: time.Now(),
	}
}

func createTestBet(id, userID string, option models.Option, amount int64) *models.Bet {
	return &models.Bet{
		ID:        id,
		UserID:    userID,
		RoundID:   TestRoundID,
		Option:    option,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}
