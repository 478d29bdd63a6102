package models

// Rating 评分记录（同一对用户保留最新一次）
type Rating struct {
	BaseModel
	RatedUserID int64 `gorm:"not null;index:idx_rating_pair,unique" json:"rated_user_id"`
	RaterUserID int64 `gorm:"not null;index:idx_rating_pair,unique" json:"rater_user_id"`
	Score       int   `gorm:"not null" json:"score"` // 1-5
}

// TableName 指定表名
func (Rating) TableName() string {
	return "ratings"
}

// PendingRating 待评分义务（聊天结束时双向写入）
type PendingRating struct {
	BaseModel
	UserID      int64 `gorm:"not null;index:idx_pending_pair,unique" json:"user_id"` // 评分者
	RatedUserID int64 `gorm:"not null;index:idx_pending_pair,unique" json:"rated_user_id"`
}

// TableName 指定表名
func (PendingRating) TableName() string {
	return "pending_ratings"
}

// RatingSummary 平均分快照（评分数不足时不对外展示）
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
