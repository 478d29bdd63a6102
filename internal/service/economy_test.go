package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
)

// EconomyServiceSuite 经济服务测试套件
type EconomyServiceSuite struct {
	suite.Suite
	repos    *repository.Manager
	svc      EconomyService
	notifier *recordingNotifier
	ctx      context.Context
}

func TestEconomyServiceSuite(t *testing.T) {
	suite.Run(t, new(EconomyServiceSuite))
}

func (s *EconomyServiceSuite) SetupTest() {
	s.repos = setupRepos(s.T())
	s.notifier = &recordingNotifier{}
	s.svc = NewEconomyService(s.repos, testEconomyConfig(), s.notifier, nopLogger())
	s.ctx = context.Background()

	createSession(s.T(), s.repos, 1001, models.StateIdle)
	createSession(s.T(), s.repos, 1002, models.StateIdle)
}

func (s *EconomyServiceSuite) TestAddAndBalance() {
	s.Require().NoError(s.svc.Add(s.ctx, 1001, 30, models.SourceStreak, "streak_reward"))

	balance, err := s.svc.Balance(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(30, balance.Streak)
	s.Equal(30, balance.Total())

	// 余额变动推送
	s.NotEmpty(s.notifier.eventsFor(1001, EventCurrencyChange))
}

func (s *EconomyServiceSuite) TestAddNonPositiveIsNoop() {
	s.Require().NoError(s.svc.Add(s.ctx, 1001, 0, models.SourceGame, ""))
	s.Require().NoError(s.svc.Add(s.ctx, 1001, -5, models.SourceGame, ""))

	balance, err := s.svc.Balance(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(0, balance.Total())
}

func (s *EconomyServiceSuite) TestDeductSmartOrder() {
	grant(s.T(), s.repos, 1001, models.SourceGame, 30)
	grant(s.T(), s.repos, 1001, models.SourceRating, 20)
	grant(s.T(), s.repos, 1001, models.SourceStreak, 50)

	// 60按 game→gift→rating→streak 顺序消耗：game清零，rating清零，streak剩40
	s.Require().NoError(s.svc.DeductSmart(s.ctx, 1001, 60))

	balance, err := s.svc.Balance(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(0, balance.Game)
	s.Equal(0, balance.Gift)
	s.Equal(0, balance.Rating)
	s.Equal(40, balance.Streak)
}

func (s *EconomyServiceSuite) TestDeductSmartInsufficientIsAtomic() {
	grant(s.T(), s.repos, 1001, models.SourceGame, 10)

	err := s.svc.DeductSmart(s.ctx, 1001, 20)
	s.Require().Error(err)
	s.Equal(apperrors.ErrInsufficientBalance, apperrors.GetCode(err))

	// 整体失败，余额不变
	balance, err := s.svc.Balance(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(10, balance.Total())
}

func (s *EconomyServiceSuite) TestDeductSmartConcurrentDoubleSpend() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 100)

	// 两笔并发的70扣减只允许一笔成功
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.svc.DeductSmart(s.ctx, 1001, 70)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperrors.GetCode(err) == apperrors.ErrInsufficientBalance:
			insufficient++
		default:
			s.Require().NoError(err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, insufficient)

	balance, err := s.svc.Balance(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(30, balance.Total())
}

func (s *EconomyServiceSuite) TestDeductSmartRejectsNonPositive() {
	err := s.svc.DeductSmart(s.ctx, 1001, 0)
	s.Equal(apperrors.ErrInvalidAmount, apperrors.GetCode(err))
}

func (s *EconomyServiceSuite) TestGift() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 50)

	s.Require().NoError(s.svc.Gift(s.ctx, 1001, 1002, 30))

	from, err := s.svc.Balance(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(20, from.Total())

	to, err := s.svc.Balance(s.ctx, 1002)
	s.Require().NoError(err)
	// 入账来源为gift
	s.Equal(30, to.Gift)
	s.Equal(30, to.Total())
}

func (s *EconomyServiceSuite) TestGiftToSelfRejected() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 50)

	err := s.svc.Gift(s.ctx, 1001, 1001, 10)
	s.Equal(apperrors.ErrInvalidParam, apperrors.GetCode(err))
}

func (s *EconomyServiceSuite) TestGiftInsufficient() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 5)

	err := s.svc.Gift(s.ctx, 1001, 1002, 10)
	s.Equal(apperrors.ErrInsufficientBalance, apperrors.GetCode(err))

	// 双方余额都不变
	to, err2 := s.svc.Balance(s.ctx, 1002)
	s.Require().NoError(err2)
	s.Equal(0, to.Total())
}

func (s *EconomyServiceSuite) TestBuyTempPremium() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 1200)

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.svc.(*economyService).now = func() time.Time { return t0 }

	until, err := s.svc.BuyTempPremium(s.ctx, 1001)
	s.Require().NoError(err)
	s.Require().NotNil(until)
	s.Equal(t0.Add(72*time.Hour), *until)

	balance, err := s.svc.Balance(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(200, balance.Total())

	session, err := s.repos.Session().GetByUserID(s.ctx, 1001)
	s.Require().NoError(err)
	s.True(session.IsPremium(t0.Add(time.Hour)))
	s.NotNil(session.TempPremiumUsedAt)
}

func (s *EconomyServiceSuite) TestBuyTempPremiumCooldown() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 3000)

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := s.svc.(*economyService)
	svc.now = func() time.Time { return t0 }

	_, err := s.svc.BuyTempPremium(s.ctx, 1001)
	s.Require().NoError(err)

	// 冷却期内再次购买被拒绝
	svc.now = func() time.Time { return t0.Add(100 * time.Hour) }
	_, err = s.svc.BuyTempPremium(s.ctx, 1001)
	s.Equal(apperrors.ErrPremiumCooldown, apperrors.GetCode(err))

	// 冷却结束后可以再次购买
	svc.now = func() time.Time { return t0.Add(361 * time.Hour) }
	until, err := s.svc.BuyTempPremium(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(t0.Add(361*time.Hour).Add(72*time.Hour), *until)

	balance, err := s.svc.Balance(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(1000, balance.Total())
}

func (s *EconomyServiceSuite) TestBuyTempPremiumInsufficient() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 500)

	_, err := s.svc.BuyTempPremium(s.ctx, 1001)
	s.Equal(apperrors.ErrInsufficientBalance, apperrors.GetCode(err))

	// 购买失败不留冷却记录
	session, err2 := s.repos.Session().GetByUserID(s.ctx, 1001)
	s.Require().NoError(err2)
	s.Nil(session.TempPremiumUsedAt)
}

func (s *EconomyServiceSuite) TestHistory() {
	for i := 0; i < 5; i++ {
		grant(s.T(), s.repos, 1001, models.SourceGame, i+1)
	}

	entries, total, err := s.svc.History(s.ctx, 1001, 1, 3)
	s.Require().NoError(err)
	s.Len(entries, 3)
	s.Equal(int64(5), total)
}
