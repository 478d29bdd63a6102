package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
)

// LedgerRepoSuite 流水仓储测试套件
type LedgerRepoSuite struct {
	suite.Suite
	db   *gorm.DB
	repo LedgerRepository
	ctx  context.Context
}

func TestLedgerRepoSuite(t *testing.T) {
	suite.Run(t, new(LedgerRepoSuite))
}

func (s *LedgerRepoSuite) SetupTest() {
	s.db = SetupTestDB()
	s.repo = NewLedgerRepository(s.db)
	s.ctx = context.Background()
}

func (s *LedgerRepoSuite) TearDownTest() {
	CleanupTestDB(s.db)
}

func (s *LedgerRepoSuite) append(userID int64, source models.CurrencySource, amount int) {
	err := s.repo.Append(s.ctx, &models.LedgerEntry{
		UserID: userID,
		Source: source,
		Amount: amount,
	})
	s.Require().NoError(err)
}

func (s *LedgerRepoSuite) TestBalancePerSource() {
	s.append(1001, models.SourceStreak, 30)
	s.append(1001, models.SourceGame, 100)
	s.append(1001, models.SourceGame, -40)
	s.append(1001, models.SourceGift, 5)

	balance, err := s.repo.BalanceFor(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(30, balance.Streak)
	s.Equal(60, balance.Game)
	s.Equal(5, balance.Gift)
	s.Equal(0, balance.Rating)
	s.Equal(95, balance.Total())
}

func (s *LedgerRepoSuite) TestBalanceFloorsNegativeSource() {
	// 单来源求和为负时展示为0，不吞掉其他来源
	s.append(1001, models.SourceGame, 10)
	s.append(1001, models.SourceGame, -25)
	s.append(1001, models.SourceStreak, 50)

	balance, err := s.repo.BalanceFor(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(0, balance.Game)
	s.Equal(50, balance.Streak)
	s.Equal(50, balance.Total())
}

func (s *LedgerRepoSuite) TestSumSourceKeepsSign() {
	s.append(1001, models.SourceGame, 10)
	s.append(1001, models.SourceGame, -25)

	sum, err := s.repo.SumSource(s.ctx, 1001, models.SourceGame)
	s.Require().NoError(err)
	s.Equal(-15, sum)
}

func (s *LedgerRepoSuite) TestBalanceIsolatedPerUser() {
	s.append(1001, models.SourceGift, 100)
	s.append(1002, models.SourceGift, 7)

	balance, err := s.repo.BalanceFor(s.ctx, 1002)
	s.Require().NoError(err)
	s.Equal(7, balance.Total())
}

func (s *LedgerRepoSuite) TestAppendRejectsUnknownSource() {
	err := s.repo.Append(s.ctx, &models.LedgerEntry{
		UserID: 1001,
		Source: "lottery",
		Amount: 10,
	})
	s.Require().Error(err)
	s.Equal(apperrors.ErrInvalidParam, apperrors.GetCode(err))
}

func (s *LedgerRepoSuite) TestAppendGeneratesOrderNo() {
	entry := &models.LedgerEntry{UserID: 1001, Source: models.SourceGame, Amount: 1}
	s.Require().NoError(s.repo.Append(s.ctx, entry))
	s.NotEmpty(entry.OrderNo)
}

func (s *LedgerRepoSuite) TestHistoryPagination() {
	for i := 0; i < 25; i++ {
		s.append(1001, models.SourceGame, i+1)
	}

	pagination := NewPagination(2, 10)
	entries, err := s.repo.History(s.ctx, 1001, pagination)
	s.Require().NoError(err)
	s.Len(entries, 10)
	s.Equal(int64(25), pagination.Total)

	pagination = NewPagination(3, 10)
	entries, err = s.repo.History(s.ctx, 1001, pagination)
	s.Require().NoError(err)
	s.Len(entries, 5)
}
