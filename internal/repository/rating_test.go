package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
)

// RatingRepoSuite 评分仓储测试套件
type RatingRepoSuite struct {
	suite.Suite
	db   *gorm.DB
	repo RatingRepository
	ctx  context.Context
}

func TestRatingRepoSuite(t *testing.T) {
	suite.Run(t, new(RatingRepoSuite))
}

func (s *RatingRepoSuite) SetupTest() {
	s.db = SetupTestDB()
	s.repo = NewRatingRepository(s.db)
	s.ctx = context.Background()
}

func (s *RatingRepoSuite) TearDownTest() {
	CleanupTestDB(s.db)
}

func (s *RatingRepoSuite) rate(rater, rated int64, score int) {
	err := s.repo.Upsert(s.ctx, &models.Rating{
		RaterUserID: rater,
		RatedUserID: rated,
		Score:       score,
	})
	s.Require().NoError(err)
}

func (s *RatingRepoSuite) TestUpsertOverwrites() {
	s.rate(1001, 1002, 3)
	s.rate(1001, 1002, 5)

	var ratings []models.Rating
	s.Require().NoError(s.db.Find(&ratings).Error)
	s.Require().Len(ratings, 1)
	s.Equal(5, ratings[0].Score)
}

func (s *RatingRepoSuite) TestUpsertRejectsInvalidScore() {
	err := s.repo.Upsert(s.ctx, &models.Rating{RaterUserID: 1001, RatedUserID: 1002, Score: 6})
	s.Equal(apperrors.ErrInvalidParam, apperrors.GetCode(err))

	err = s.repo.Upsert(s.ctx, &models.Rating{RaterUserID: 1001, RatedUserID: 1002, Score: 0})
	s.Equal(apperrors.ErrInvalidParam, apperrors.GetCode(err))
}

func (s *RatingRepoSuite) TestSummaryBelowMinCount() {
	s.rate(1001, 2000, 5)
	s.rate(1002, 2000, 4)

	// 评分数不足时不对外展示平均分
	summary, err := s.repo.Summary(s.ctx, 2000, 3)
	s.Require().NoError(err)
	s.Nil(summary)
}

func (s *RatingRepoSuite) TestSummaryAverage() {
	s.rate(1001, 2000, 5)
	s.rate(1002, 2000, 4)
	s.rate(1003, 2000, 3)

	summary, err := s.repo.Summary(s.ctx, 2000, 3)
	s.Require().NoError(err)
	s.Require().NotNil(summary)
	s.Equal(3, summary.Count)
	s.InDelta(4.0, summary.Average, 0.001)
}

func (s *RatingRepoSuite) TestPendingLifecycle() {
	s.Require().NoError(s.repo.AddPending(s.ctx, 1001, 1002))
	// 重复写入幂等
	s.Require().NoError(s.repo.AddPending(s.ctx, 1001, 1002))
	s.Require().NoError(s.repo.AddPending(s.ctx, 1001, 1003))

	count, err := s.repo.PendingCount(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	list, err := s.repo.PendingList(s.ctx, 1001)
	s.Require().NoError(err)
	s.Len(list, 2)

	s.Require().NoError(s.repo.RemovePending(s.ctx, 1001, 1002))

	count, err = s.repo.PendingCount(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	// 物理删除后同一对用户可以再次写入义务
	s.Require().NoError(s.repo.AddPending(s.ctx, 1001, 1002))
	count, err = s.repo.PendingCount(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}
