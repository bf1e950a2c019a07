package models

import "time"

// Pagination — метаданные постраничной выдачи ленты.
// Все поля вычисляются из одного и того же значения TotalComments,
// чтобы hasNextPage/hasPrevPage не разъезжались с totalPages.
type Pagination struct {
	CurrentPage   int64
	TotalPages    int64
	TotalComments int64
	HasNextPage   bool
	HasPrevPage   bool
}

// FeedReply — проекция ответа для выдачи: liked_by скрыт,
// вместо него вычисленный HasLiked текущего пользователя.
type FeedReply struct {
	ID          string
	ReplyToUser string
	Username    string
	Avatar      string
	Content     string
	CreatedAt   time.Time
	Likes       int64
	HasLiked    bool
}

// FeedComment — проекция комментария для выдачи (см. FeedReply).
type FeedComment struct {
	ID        string
	Username  string
	Avatar    string
	Content   string
	CreatedAt time.Time
	Likes     int64
	HasLiked  bool
	Replies   []FeedReply
}

// Feed — готовая к отдаче страница ленты.
//   - ETag — детерминированный отпечаток содержимого страницы и общего
//     количества; одинаковое содержимое даёт одинаковый тег.
//   - LastModified — created_at самого свежего элемента страницы
//     (для пустой страницы — момент сборки).
type Feed struct {
	Comments     []FeedComment
	Pagination   Pagination
	ETag         string
	LastModified time.Time
}
