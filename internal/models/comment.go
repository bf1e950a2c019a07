// Package models содержит доменные сущности blog-comments-сервиса.
package models

import (
	"time"
)

// DefaultAvatar — дефолтная аватарка для комментаторов без собственной.
// Значение непрозрачно для сервиса: аватар хранится и отдаётся как есть.
const DefaultAvatar = "./images/avatar.svg"

// Comment — внутренняя доменная модель корневого комментария (MongoDB).
// Важно:
//   - ID — ObjectID MongoDB. Наружу/вовнутрь конвертируется в string (hex).
//   - Avatar — непрозрачная ссылка (дефолтный путь или встроенное изображение).
//   - Likes всегда равен len(LikedBy): инварианты поддерживает слой storage
//     условными атомарными обновлениями (см. storage/mongo).
//   - Replies — встроенные ответы; порядок массива = порядок отображения,
//     дозапись только в конец.
//   - CreatedAt — MongoDB DateTime (миллисекунды, UTC); клиентская метка
//     времени уважается, иначе ставится серверная.
type Comment struct {
	ID        string    `bson:"_id,omitempty"`
	Username  string    `bson:"username"`
	Avatar    string    `bson:"avatar"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	Likes     int64     `bson:"likes"`
	LikedBy   []string  `bson:"liked_by"`
	Replies   []Reply   `bson:"replies"`
}

// Reply — ответ, встроенный в массив replies родительского комментария.
// ID — UUID, генерируется хранилищем при дозаписи: стабилен при любых
// будущих перестановках массива, в отличие от позиционного индекса.
// ReplyToUser — имя адресата ответа, чисто отображаемая метаданная без
// ссылочной целостности.
type Reply struct {
	ID          string    `bson:"id"`
	ReplyToUser string    `bson:"reply_to_user,omitempty"`
	Username    string    `bson:"username"`
	Avatar      string    `bson:"avatar"`
	Content     string    `bson:"content"`
	CreatedAt   time.Time `bson:"created_at"`
	Likes       int64     `bson:"likes"`
	LikedBy     []string  `bson:"liked_by"`
}

// HasLiked сообщает, лайкнул ли пользователь комментарий.
// Пустой userID (аноним) всегда даёт false.
func (c *Comment) HasLiked(userID string) bool {
	return contains(c.LikedBy, userID)
}

// HasLiked сообщает, лайкнул ли пользователь ответ.
func (r *Reply) HasLiked(userID string) bool {
	return contains(r.LikedBy, userID)
}

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}

	for _, s := range set {
		if s == v {
			return true
		}
	}

	return false
}
