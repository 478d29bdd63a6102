package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
)

// MatchServiceSuite 匹配服务测试套件
type MatchServiceSuite struct {
	suite.Suite
	repos    *repository.Manager
	svc      MatchService
	notifier *recordingNotifier
	ctx      context.Context
}

func TestMatchServiceSuite(t *testing.T) {
	suite.Run(t, new(MatchServiceSuite))
}

func (s *MatchServiceSuite) SetupTest() {
	s.repos = setupRepos(s.T())
	s.notifier = &recordingNotifier{}
	economy := NewEconomyService(s.repos, testEconomyConfig(), NopNotifier{}, nopLogger())
	streak := NewStreakService(s.repos, testStreakConfig(), economy, NopNotifier{}, nopLogger())
	s.svc = NewMatchService(s.repos, testMatchConfig(), streak, s.notifier, nopLogger())
	s.ctx = context.Background()
}

// readySession 创建已完成设置的idle会话
func (s *MatchServiceSuite) readySession(userID int64, gender, pref string) {
	createSession(s.T(), s.repos, userID, models.StateIdle)
	s.Require().NoError(s.repos.Session().SetGender(s.ctx, userID, gender))
	s.Require().NoError(s.repos.Session().SetGenderPreference(s.ctx, userID, pref))
}

func (s *MatchServiceSuite) TestEnsureSessionCreates() {
	session, err := s.svc.EnsureSession(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(models.StateNew, session.State)

	// 重复调用返回已有会话
	again, err := s.svc.EnsureSession(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(session.UserID, again.UserID)
}

func (s *MatchServiceSuite) TestOnboardingFlow() {
	_, err := s.svc.EnsureSession(s.ctx, 1001)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.AgreeRules(s.ctx, 1001))
	s.Require().NoError(s.svc.CompleteSetup(s.ctx, 1001, "male", "any"))

	session, err := s.repos.Session().GetByUserID(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(models.StateIdle, session.State)
	s.Equal("male", session.Gender)
	s.Equal("any", session.GenderPreference)
}

func (s *MatchServiceSuite) TestAgreeRulesWrongState() {
	createSession(s.T(), s.repos, 1001, models.StateIdle)

	err := s.svc.AgreeRules(s.ctx, 1001)
	s.Equal(apperrors.ErrPreconditionFailed, apperrors.GetCode(err))
}

func (s *MatchServiceSuite) TestRequestMatchEmptyPool() {
	s.readySession(1001, "male", "any")

	result, err := s.svc.RequestMatch(s.ctx, 1001)
	s.Require().NoError(err)
	s.False(result.Matched)
	s.Equal(int64(1), result.PoolSize)

	session, err := s.repos.Session().GetByUserID(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(models.StateSearching, session.State)

	inPool, err := s.repos.Pool().InPool(s.ctx, 1001)
	s.Require().NoError(err)
	s.True(inPool)
}

func (s *MatchServiceSuite) TestRequestMatchPairsTwoUsers() {
	s.readySession(1001, "male", "any")
	s.readySession(1002, "female", "any")

	_, err := s.svc.RequestMatch(s.ctx, 1001)
	s.Require().NoError(err)

	result, err := s.svc.RequestMatch(s.ctx, 1002)
	s.Require().NoError(err)
	s.True(result.Matched)
	s.Equal(int64(1001), result.PartnerID)
	s.NotEmpty(result.ChatID)

	// 双方都进入chatting且互为伙伴
	for _, pair := range []struct{ user, partner int64 }{{1001, 1002}, {1002, 1001}} {
		session, err := s.repos.Session().GetByUserID(s.ctx, pair.user)
		s.Require().NoError(err)
		s.Equal(models.StateChatting, session.State)
		s.Require().NotNil(session.PartnerID)
		s.Equal(pair.partner, *session.PartnerID)
	}

	// 队列清空，聊天与匹配历史落库
	count, err := s.repos.Pool().Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), count)

	chat, err := s.repos.Pool().GetChatByUser(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(result.ChatID, chat.ChatID)

	matchedAt, err := s.repos.Pool().LastMatchedAt(s.ctx, 1001, 1002)
	s.Require().NoError(err)
	s.NotNil(matchedAt)

	// 双方都收到匹配推送
	s.Len(s.notifier.eventsFor(1001, EventMatchFound), 1)
	s.Len(s.notifier.eventsFor(1002, EventMatchFound), 1)
}

func (s *MatchServiceSuite) TestRequestMatchAlreadySearching() {
	s.readySession(1001, "male", "any")

	_, err := s.svc.RequestMatch(s.ctx, 1001)
	s.Require().NoError(err)

	_, err = s.svc.RequestMatch(s.ctx, 1001)
	s.Equal(apperrors.ErrAlreadySearching, apperrors.GetCode(err))
}

func (s *MatchServiceSuite) TestRequestMatchAlreadyChatting() {
	s.readySession(1001, "male", "any")
	s.readySession(1002, "female", "any")

	_, err := s.svc.RequestMatch(s.ctx, 1001)
	s.Require().NoError(err)
	_, err = s.svc.RequestMatch(s.ctx, 1002)
	s.Require().NoError(err)

	_, err = s.svc.RequestMatch(s.ctx, 1001)
	s.Equal(apperrors.ErrAlreadyChatting, apperrors.GetCode(err))
}

func (s *MatchServiceSuite) TestGenderPreferenceFilters() {
	s.readySession(1001, "male", "any")
	s.readySession(1002, "female", "female")

	_, err := s.svc.RequestMatch(s.ctx, 1001)
	s.Require().NoError(err)

	// 队列里只有男性，偏好女性的用户匹配不到
	result, err := s.svc.RequestMatch(s.ctx, 1002)
	s.Require().NoError(err)
	s.False(result.Matched)
	s.Equal(int64(2), result.PoolSize)
}

func (s *MatchServiceSuite) TestRecentMatchExcluded() {
	s.readySession(1001, "male", "any")
	s.readySession(1002, "female", "any")

	// 10分钟前刚配过对，30分钟窗口内不再撮合
	err := s.repos.Pool().RecordMatch(s.ctx, 1001, 1002, time.Now().Add(-10*time.Minute))
	s.Require().NoError(err)

	_, err = s.svc.RequestMatch(s.ctx, 1001)
	s.Require().NoError(err)

	result, err := s.svc.RequestMatch(s.ctx, 1002)
	s.Require().NoError(err)
	s.False(result.Matched)
}

func (s *MatchServiceSuite) TestPremiumCandidatePreferred() {
	// 两名候选人直接驻留队列，避免相互撮合
	s.readySession(2001, "female", "any")
	s.readySession(2002, "female", "any")
	s.readySession(2003, "male", "any")
	for _, userID := range []int64{2001, 2002} {
		err := s.repos.Session().TransitionState(s.ctx, userID, models.StateIdle, models.StateSearching)
		s.Require().NoError(err)
	}

	joined := time.Now().Add(-2 * time.Second)
	s.Require().NoError(s.repos.Pool().Enqueue(s.ctx, &models.WaitingUser{
		UserID:           2001,
		JoinedAt:         joined.Add(-time.Second),
		Gender:           "female",
		GenderPreference: "any",
	}))
	s.Require().NoError(s.repos.Pool().Enqueue(s.ctx, &models.WaitingUser{
		UserID:           2002,
		JoinedAt:         joined,
		Gender:           "female",
		GenderPreference: "any",
		IsPremium:        true,
	}))

	result, err := s.svc.RequestMatch(s.ctx, 2003)
	s.Require().NoError(err)
	s.True(result.Matched)
	// 会员加分胜过先入队者
	s.Equal(int64(2002), result.PartnerID)
}

func (s *MatchServiceSuite) TestLeaveChatEndsForBoth() {
	s.readySession(1001, "male", "any")
	s.readySession(1002, "female", "any")

	_, err := s.svc.RequestMatch(s.ctx, 1001)
	s.Require().NoError(err)
	_, err = s.svc.RequestMatch(s.ctx, 1002)
	s.Require().NoError(err)

	result, err := s.svc.LeaveOrStop(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal("chat_ended", result.Outcome)
	s.Equal(int64(1002), result.PartnerID)

	// 双方都进入rating，伙伴指针清空，聊天删除
	for _, userID := range []int64{1001, 1002} {
		session, err := s.repos.Session().GetByUserID(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(models.StateRating, session.State)
		s.Nil(session.PartnerID)
	}
	_, err = s.repos.Pool().GetChatByUser(s.ctx, 1001)
	s.Equal(apperrors.ErrNotChatting, apperrors.GetCode(err))

	// 双向待评分义务
	count, err := s.repos.Rating().PendingCount(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
	count, err = s.repos.Rating().PendingCount(s.ctx, 1002)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	// 对方收到离开通知，双方收到评分提示
	s.Len(s.notifier.eventsFor(1002, EventPartnerLeft), 1)
	s.Len(s.notifier.eventsFor(1001, EventRatingPrompt), 1)
	s.Len(s.notifier.eventsFor(1002, EventRatingPrompt), 1)
}

func (s *MatchServiceSuite) TestStopSearchLeavesPool() {
	s.readySession(1001, "male", "any")

	_, err := s.svc.RequestMatch(s.ctx, 1001)
	s.Require().NoError(err)

	result, err := s.svc.LeaveOrStop(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal("left_pool", result.Outcome)

	session, err := s.repos.Session().GetByUserID(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(models.StateIdle, session.State)

	inPool, err := s.repos.Pool().InPool(s.ctx, 1001)
	s.Require().NoError(err)
	s.False(inPool)
}

func (s *MatchServiceSuite) TestStopWhenIdleIsNoop() {
	createSession(s.T(), s.repos, 1001, models.StateIdle)

	result, err := s.svc.LeaveOrStop(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal("noop", result.Outcome)
}

func (s *MatchServiceSuite) TestLeaveChatWithoutPartnerRejected() {
	createSession(s.T(), s.repos, 1001, models.StateChatting)

	_, err := s.svc.LeaveOrStop(s.ctx, 1001)
	s.Equal(apperrors.ErrPartnerMissing, apperrors.GetCode(err))
}

func (s *MatchServiceSuite) TestProfile() {
	s.readySession(1001, "male", "any")
	grant(s.T(), s.repos, 1001, models.SourceGame, 30)
	grant(s.T(), s.repos, 1001, models.SourceGift, 20)

	profile, err := s.svc.Profile(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(models.StateIdle, profile.State)
	s.Equal("male", profile.Gender)
	s.Equal(50, profile.Total)
	s.Equal(30, profile.Balance.Game)
	s.Nil(profile.Rating)
	s.Nil(profile.Garden)
}
