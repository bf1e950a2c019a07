package handlers

import (
	"time"

	"github.com/pribylovaa/go-blog-comments/internal/models"
)

// Wire-модели HTTP-слоя. Имена полей повторяют формат фронта
// (camelCase); liked_by наружу не отдаётся — вместо него hasLiked.

// CreateCommentRequest — тело POST /comments.
// Непустой ParentID переключает запрос в режим ответа.
type CreateCommentRequest struct {
	Username    string    `json:"username"`
	Content     string    `json:"content"`
	Avatar      string    `json:"avatar,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	ParentID    string    `json:"parentId,omitempty"`
	ReplyToUser string    `json:"replyToUser,omitempty"`
}

// ReplyView — ответ в wire-формате.
type ReplyView struct {
	ID          string    `json:"id"`
	ReplyToUser string    `json:"replyToUser,omitempty"`
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	Likes       int64     `json:"likes"`
	HasLiked    bool      `json:"hasLiked"`
}

// CommentView — комментарий в wire-формате.
type CommentView struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Avatar    string      `json:"avatar"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	Likes     int64       `json:"likes"`
	HasLiked  bool        `json:"hasLiked"`
	Replies   []ReplyView `json:"replies"`
}

// CreateCommentResponse — 201 на создание корневого комментария.
type CreateCommentResponse struct {
	Message string      `json:"message"`
	Comment CommentView `json:"comment"`
}

// CreateReplyResponse — 201 на дозапись ответа.
type CreateReplyResponse struct {
	Message string    `json:"message"`
	Reply   ReplyView `json:"reply"`
}

// PaginationView — метаданные страницы ленты.
type PaginationView struct {
	CurrentPage   int64 `json:"currentPage"`
	TotalPages    int64 `json:"totalPages"`
	TotalComments int64 `json:"totalComments"`
	HasNextPage   bool  `json:"hasNextPage"`
	HasPrevPage   bool  `json:"hasPrevPage"`
}

// FeedResponse — тело GET /comments.
type FeedResponse struct {
	Comments   []CommentView  `json:"comments"`
	Pagination PaginationView `json:"pagination"`
}

// CountResponse — тело GET /comments/count.
type CountResponse struct {
	TotalCount int64 `json:"totalCount"`
}

// ToggleLikeRequest — тело POST /comments/like.
// Пустой ReplyID — лайк комментария, непустой — конкретного ответа.
type ToggleLikeRequest struct {
	CommentID string `json:"commentId"`
	ReplyID   string `json:"replyId,omitempty"`
	Action    string `json:"action"`
}

// ToggleLikeResponse — результат переключения лайка.
type ToggleLikeResponse struct {
	Message  string `json:"message"`
	Likes    int64  `json:"likes"`
	HasLiked bool   `json:"hasLiked"`
}

// commentViewFromModel — свежесозданный комментарий: liked_by пуст,
// поэтому hasLiked автора всегда false.
func commentViewFromModel(c *models.Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		Username:  c.Username,
		Avatar:    c.Avatar,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Likes:     c.Likes,
		Replies:   []ReplyView{},
	}
}

func replyViewFromModel(r *models.Reply) ReplyView {
	return ReplyView{
		ID:          r.ID,
		ReplyToUser: r.ReplyToUser,
		Username:    r.Username,
		Avatar:      r.Avatar,
		Content:     r.Content,
		CreatedAt:   r.CreatedAt,
		Likes:       r.Likes,
	}
}

func feedResponseFromModel(feed *models.Feed) FeedResponse {
	comments := make([]CommentView, 0, len(feed.Comments))
	for i := range feed.Comments {
		c := &feed.Comments[i]

		replies := make([]ReplyView, 0, len(c.Replies))
		for j := range c.Replies {
			r := &c.Replies[j]
			replies = append(replies, ReplyView{
				ID:          r.ID,
				ReplyToUser: r.ReplyToUser,
				Username:    r.Username,
				Avatar:      r.Avatar,
				Content:     r.Content,
				CreatedAt:   r.CreatedAt,
				Likes:       r.Likes,
				HasLiked:    r.HasLiked,
			})
		}

		comments = append(comments, CommentView{
			ID:        c.ID,
			Username:  c.Username,
			Avatar:    c.Avatar,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			Likes:     c.Likes,
			HasLiked:  c.HasLiked,
			Replies:   replies,
		})
	}

	return FeedResponse{
		Comments: comments,
		Pagination: PaginationView{
			CurrentPage:   feed.Pagination.CurrentPage,
			TotalPages:    feed.Pagination.TotalPages,
			TotalComments: feed.Pagination.TotalComments,
			HasNextPage:   feed.Pagination.HasNextPage,
			HasPrevPage:   feed.Pagination.HasPrevPage,
		},
	}
}
