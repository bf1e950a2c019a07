package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog-comments/internal/models"
	"github.com/pribylovaa/go-blog-comments/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// toMS — MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

// mapErr переводит ошибки драйвера в сентинелы хранилища.
// Таймауты и сетевые обрывы — storage.ErrUnavailable (ретраибельно),
// остальное уходит наверх как есть.
func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		mongodriver.IsTimeout(err),
		mongodriver.IsNetworkError(err):
		return fmt.Errorf("%s: %w: %v", op, storage.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// limitOrDefault приводит запрошенный размер страницы к [1, Max],
// нулевое/отрицательное значение заменяя дефолтом.
func limitOrDefault(max, def, limit int64) int64 {
	if limit <= 0 {
		return def
	}

	if limit > max {
		return max
	}

	return limit
}

// InsertComment сохраняет корневой комментарий.
//   - Клиентская метка created_at уважается (защита от клиентского clock skew
//     в порядке отображения), иначе ставится серверное время.
//   - likes/liked_by/replies инициализируются нулём/пустыми массивами, а не null,
//     чтобы атомарные $addToSet/$push работали без ветвлений.
func (m *Mongo) InsertComment(ctx context.Context, comm models.Comment) (*models.Comment, error) {
	const op = "storage/mongo/InsertComment"

	now := toMS(time.Now())

	if comm.CreatedAt.IsZero() {
		comm.CreatedAt = now
	} else {
		comm.CreatedAt = toMS(comm.CreatedAt)
	}

	comm.ID = ""
	comm.Likes = 0
	comm.LikedBy = []string{}
	comm.Replies = []models.Reply{}

	res, err := m.comments.InsertOne(ctx, comm)
	if err != nil {
		return nil, mapErr(op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		// Mongo всегда возвращает ObjectID.
		return nil, fmt.Errorf("%s: inserted id type", op)
	}

	comm.ID = oid.Hex()
	return &comm, nil
}

// AppendReply дозаписывает ответ в конец массива replies родителя.
// Идентификатор ответа — свежий UUID: стабилен и не коллизионен в отличие
// от таймстемпов при серии быстрых ответов. Отсутствие родителя — ErrNotFound.
func (m *Mongo) AppendReply(ctx context.Context, parentID string, reply models.Reply) (*models.Reply, error) {
	const op = "storage/mongo/AppendReply"

	parentOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(parentID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	now := toMS(time.Now())

	reply.ID = uuid.NewString()
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = now
	} else {
		reply.CreatedAt = toMS(reply.CreatedAt)
	}
	reply.Likes = 0
	reply.LikedBy = []string{}

	res, err := m.comments.UpdateByID(ctx, parentOID, bson.D{
		{Key: "$push", Value: bson.D{{Key: "replies", Value: reply}}},
	})
	if err != nil {
		return nil, mapErr(op, err)
	}

	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &reply, nil
}

// Page возвращает страницу корневых комментариев.
// Сортировка created_at DESC со стабильным тай-брейком по _id DESC:
// комментарии с одинаковой меткой времени сохраняют порядок вставки.
func (m *Mongo) Page(ctx context.Context, page, limit int64) ([]models.Comment, error) {
	const op = "storage/mongo/Page"

	if page < 1 {
		page = 1
	}
	limit = limitOrDefault(m.cfg.Limits.Max, m.cfg.Limits.Default, limit)

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cur, err := m.comments.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer cur.Close(ctx)

	var items []models.Comment
	for cur.Next(ctx) {
		var comm models.Comment
		if err := cur.Decode(&comm); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}

		// Нормализация времён.
		comm.CreatedAt = comm.CreatedAt.UTC()
		for i := range comm.Replies {
			comm.Replies[i].CreatedAt = comm.Replies[i].CreatedAt.UTC()
		}
		items = append(items, comm)
	}

	if err := cur.Err(); err != nil {
		return nil, mapErr(op, err)
	}

	return items, nil
}

// CountComments возвращает точное количество корневых комментариев.
// Именно это значение используется для totalPages/hasNextPage/hasPrevPage,
// поэтому приближённый EstimatedDocumentCount здесь не годится.
func (m *Mongo) CountComments(ctx context.Context) (int64, error) {
	const op = "storage/mongo/CountComments"

	total, err := m.comments.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, mapErr(op, err)
	}

	return total, nil
}

// CountAll возвращает корневые комментарии плюс все встроенные ответы
// одним агрегационным проходом.
func (m *Mongo) CountAll(ctx context.Context) (int64, error) {
	const op = "storage/mongo/CountAll"

	pipeline := mongodriver.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$add", Value: bson.A{
					1,
					bson.D{{Key: "$size", Value: bson.D{
						{Key: "$ifNull", Value: bson.A{"$replies", bson.A{}}},
					}}},
				}},
			}}}},
		}}},
	}

	cur, err := m.comments.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, mapErr(op, err)
	}
	defer cur.Close(ctx)

	var row struct {
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, fmt.Errorf("%s: decode: %w", op, err)
		}
	}

	if err := cur.Err(); err != nil {
		return 0, mapErr(op, err)
	}

	return row.Total, nil
}

// LikeComment добавляет лайк одним условным атомарным обновлением:
// предикат «пользователь ещё не в liked_by» стоит в фильтре, поэтому $inc
// срабатывает только вместе с фактическим изменением множества — likes
// не может разойтись с len(liked_by) даже при гонке дублей одного юзера.
func (m *Mongo) LikeComment(ctx context.Context, commentID, userID string) (int64, error) {
	const op = "storage/mongo/LikeComment"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(commentID))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "liked_by", Value: bson.D{{Key: "$ne", Value: userID}}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "likes", Value: 1}}},
		{Key: "$addToSet", Value: bson.D{{Key: "liked_by", Value: userID}}},
	}

	var updated models.Comment
	err = m.comments.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)

	if err == nil {
		return updated.Likes, nil
	}

	if !errors.Is(err, mongodriver.ErrNoDocuments) {
		return 0, mapErr(op, err)
	}

	// Прекондишен не сработал: различаем «нет комментария» и «уже лайкнут».
	return 0, m.disambiguateComment(ctx, op, oid, storage.ErrAlreadyLiked)
}

// UnlikeComment снимает лайк; предикат членства в liked_by стоит в фильтре
// (см. LikeComment), так что счётчик никогда не уходит ниже нуля.
func (m *Mongo) UnlikeComment(ctx context.Context, commentID, userID string) (int64, error) {
	const op = "storage/mongo/UnlikeComment"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(commentID))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "liked_by", Value: userID},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "likes", Value: -1}}},
		{Key: "$pull", Value: bson.D{{Key: "liked_by", Value: userID}}},
	}

	var updated models.Comment
	err = m.comments.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)

	if err == nil {
		return updated.Likes, nil
	}

	if !errors.Is(err, mongodriver.ErrNoDocuments) {
		return 0, mapErr(op, err)
	}

	return 0, m.disambiguateComment(ctx, op, oid, storage.ErrNotLiked)
}

// LikeReply — условный атомарный лайк ответа, адресуемого стабильным reply id.
// $elemMatch в фильтре требует и наличия ответа, и отсутствия пользователя
// в его liked_by; arrayFilters доставляет $inc/$addToSet до нужного элемента.
func (m *Mongo) LikeReply(ctx context.Context, parentID, replyID, userID string) (int64, error) {
	const op = "storage/mongo/LikeReply"

	parentOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(parentID))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	replyID = strings.TrimSpace(replyID)

	filter := bson.D{
		{Key: "_id", Value: parentOID},
		{Key: "replies", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "id", Value: replyID},
			{Key: "liked_by", Value: bson.D{{Key: "$ne", Value: userID}}},
		}}}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "replies.$[r].likes", Value: 1}}},
		{Key: "$addToSet", Value: bson.D{{Key: "replies.$[r].liked_by", Value: userID}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.D{{Key: "r.id", Value: replyID}}},
		})

	var updated models.Comment
	err = m.comments.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)

	if err == nil {
		return replyLikes(&updated, replyID, op)
	}

	if !errors.Is(err, mongodriver.ErrNoDocuments) {
		return 0, mapErr(op, err)
	}

	return 0, m.disambiguateReply(ctx, op, parentOID, replyID, storage.ErrAlreadyLiked)
}

// UnlikeReply — симметричное снятие лайка с ответа.
func (m *Mongo) UnlikeReply(ctx context.Context, parentID, replyID, userID string) (int64, error) {
	const op = "storage/mongo/UnlikeReply"

	parentOID, err := primitive.ObjectIDFromHex(strings.TrimSpace(parentID))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	replyID = strings.TrimSpace(replyID)

	filter := bson.D{
		{Key: "_id", Value: parentOID},
		{Key: "replies", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "id", Value: replyID},
			{Key: "liked_by", Value: userID},
		}}}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "replies.$[r].likes", Value: -1}}},
		{Key: "$pull", Value: bson.D{{Key: "replies.$[r].liked_by", Value: userID}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.D{{Key: "r.id", Value: replyID}}},
		})

	var updated models.Comment
	err = m.comments.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)

	if err == nil {
		return replyLikes(&updated, replyID, op)
	}

	if !errors.Is(err, mongodriver.ErrNoDocuments) {
		return 0, mapErr(op, err)
	}

	return 0, m.disambiguateReply(ctx, op, parentOID, replyID, storage.ErrNotLiked)
}

// disambiguateComment выясняет, почему условное обновление не нашло документ:
// комментария нет вовсе (ErrNotFound) или не выполнился прекондишен (conflictErr).
func (m *Mongo) disambiguateComment(ctx context.Context, op string, oid primitive.ObjectID, conflictErr error) error {
	err := m.comments.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Err()
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return mapErr(op, err)
	}

	return fmt.Errorf("%s: %w", op, conflictErr)
}

// disambiguateReply — то же для ответа: нет родителя/ответа -> ErrNotFound,
// ответ есть, но прекондишен не выполнился -> conflictErr.
func (m *Mongo) disambiguateReply(ctx context.Context, op string, parentOID primitive.ObjectID, replyID string, conflictErr error) error {
	var parent models.Comment
	err := m.comments.FindOne(ctx, bson.D{{Key: "_id", Value: parentOID}}).Decode(&parent)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return mapErr(op, err)
	}

	for i := range parent.Replies {
		if parent.Replies[i].ID == replyID {
			return fmt.Errorf("%s: %w", op, conflictErr)
		}
	}

	return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// replyLikes достаёт итоговый счётчик нужного ответа из обновлённого документа.
func replyLikes(parent *models.Comment, replyID, op string) (int64, error) {
	for i := range parent.Replies {
		if parent.Replies[i].ID == replyID {
			return parent.Replies[i].Likes, nil
		}
	}

	// Сюда можно попасть только при конкурентном изменении схемы документа.
	return 0, fmt.Errorf("%s: reply %s missing in updated document", op, replyID)
}
