package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/uno-lobby/internal/apperrors"
	"github.com/palemoky/uno-lobby/internal/game/card"
)

const (
	// DefaultCollection 房间文档集合名
	DefaultCollection = "appmob_lobby"
	// DefaultMaxRetries 乐观锁冲突时的最大重试次数
	DefaultMaxRetries = 10

	// 字典序上界哨兵，UTF-8 中不会出现 0xff
	highSentinel   = "\xff"
	indexSeparator = "\x00"
)

// 变更事件类型
const (
	OpCreated  = "created"
	OpUpdated  = "updated"
	OpStarted  = "started"
	OpDrawPile = "draw_pile"
	OpDeleted  = "deleted"
)

// ChangeEvent 房间文档变更通知
type ChangeEvent struct {
	LobbyID string `json:"lobby_id"`
	Op      string `json:"op"`
}

// LobbyRepository 房间文档仓库
//
// 每个房间是一个 hash：<collection>:<id>，每个顶层字段存一个 JSON 值，
// 因此合并写入只需 HSET 指定字段。房间名索引是 <collection>:names（score 全为 0 的 zset，
// 成员为 name\x00id），前缀查询用 ZRANGEBYLEX。
type LobbyRepository struct {
	client     *redis.Client
	collection string
	maxRetries int
}

// NewLobbyRepository 创建房间仓库
func NewLobbyRepository(client *redis.Client, collection string, maxRetries int) *LobbyRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &LobbyRepository{
		client:     client,
		collection: collection,
		maxRetries: maxRetries,
	}
}

// Create 新建房间文档，返回服务端分配的 ID
func (lr *LobbyRepository) Create(ctx context.Context, rec *LobbyRecord) (string, error) {
	if rec == nil {
		return "", errors.New("房间数据为空")
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	fields, err := encodeFields(rec)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = lr.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, lr.docKey(id), fields)
		pipe.ZAdd(ctx, lr.indexKey(), redis.Z{Member: indexMember(rec.Name, id)})
		lr.publish(ctx, pipe, id, OpCreated)
		return nil
	})
	if err != nil {
		return "", apperrors.NewStoreError("create", err)
	}
	return id, nil
}

// Read 读取完整房间文档
func (lr *LobbyRepository) Read(ctx context.Context, id string) (*LobbyRecord, error) {
	if !validID(id) {
		return nil, apperrors.ErrLobbyNotFound
	}

	values, err := lr.client.HGetAll(ctx, lr.docKey(id)).Result()
	if err != nil {
		return nil, apperrors.NewStoreError("read", err)
	}
	if len(values) == 0 {
		return nil, apperrors.ErrLobbyNotFound
	}
	return decodeFields(values)
}

// Write 写入房间文档。merge 为 true 时只覆盖给定字段，否则整体覆盖。
// 与 Read 组合使用时没有并发保护，后写者覆盖先写者。
func (lr *LobbyRepository) Write(ctx context.Context, id string, rec *LobbyRecord, merge bool) error {
	if !validID(id) {
		return apperrors.ErrLobbyNotFound
	}
	if rec == nil {
		return errors.New("房间数据为空")
	}

	fields, err := encodeFields(rec)
	if err != nil {
		return err
	}

	oldName, err := lr.storedName(ctx, lr.client, id)
	if err != nil {
		return apperrors.NewStoreError("write", err)
	}

	key := lr.docKey(id)
	_, err = lr.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if !merge {
			pipe.Del(ctx, key)
		}
		pipe.HSet(ctx, key, fields)
		lr.reindex(ctx, pipe, id, oldName, rec.Name)
		lr.publish(ctx, pipe, id, OpUpdated)
		return nil
	})
	return apperrors.NewStoreError("write", err)
}

// Update 以乐观锁方式读改写房间文档：WATCH 文档，读取后交给 fn 修改，再在 MULTI/EXEC 中写回。
// 冲突时自动重试，超过次数返回 ErrUpdateConflict。fn 返回的错误会原样返回。
func (lr *LobbyRepository) Update(ctx context.Context, id string, fn func(rec *LobbyRecord) error) (*LobbyRecord, error) {
	if !validID(id) {
		return nil, apperrors.ErrLobbyNotFound
	}

	key := lr.docKey(id)
	var updated *LobbyRecord
	err := lr.watch(ctx, "update", id, func(tx *redis.Tx) error {
		values, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return apperrors.ErrLobbyNotFound
		}

		rec, err := decodeFields(values)
		if err != nil {
			return err
		}
		oldName := rec.Name

		if err := fn(rec); err != nil {
			return abortError{err: err}
		}

		fields, err := encodeFields(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			lr.reindex(ctx, pipe, id, oldName, rec.Name)
			lr.publish(ctx, pipe, id, OpUpdated)
			return nil
		})
		if err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetStarted 合并写入 {started: true}
func (lr *LobbyRepository) SetStarted(ctx context.Context, id string) error {
	return lr.mergeExisting(ctx, "set_started", id, map[string]any{"started": "true"}, OpStarted)
}

// SetDrawPile 合并写入新的公共牌堆顶
func (lr *LobbyRepository) SetDrawPile(ctx context.Context, id string, c card.Card) error {
	fields, err := encodeFields(struct {
		Pioche card.Card `json:"pioche"`
	}{Pioche: c})
	if err != nil {
		return err
	}
	return lr.mergeExisting(ctx, "set_draw_pile", id, fields, OpDrawPile)
}

// SearchByNamePrefix 查找名称以 prefix 开头且尚未开始的房间
func (lr *LobbyRepository) SearchByNamePrefix(ctx context.Context, prefix string) ([]LobbyMatch, error) {
	members, err := lr.client.ZRangeByLex(ctx, lr.indexKey(), &redis.ZRangeBy{
		Min: "[" + prefix,
		Max: "(" + prefix + highSentinel,
	}).Result()
	if err != nil {
		return nil, apperrors.NewStoreError("search", err)
	}

	matches := make([]LobbyMatch, 0, len(members))
	if len(members) == 0 {
		return matches, nil
	}

	ids := make([]string, len(members))
	pipe := lr.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, member := range members {
		ids[i] = member[strings.LastIndex(member, indexSeparator)+1:]
		cmds[i] = pipe.HGetAll(ctx, lr.docKey(ids[i]))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, apperrors.NewStoreError("search", err)
	}

	for i, cmd := range cmds {
		values, err := cmd.Result()
		if err != nil || len(values) == 0 {
			continue // 索引残留
		}
		rec, err := decodeFields(values)
		if err != nil {
			log.Printf("⚠️ 房间 %s 数据损坏: %v", ids[i], err)
			continue
		}
		if rec.Started || !strings.HasPrefix(rec.Name, prefix) {
			continue
		}
		matches = append(matches, LobbyMatch{ID: ids[i], Record: *rec})
	}
	return matches, nil
}

// Delete 删除房间文档，文档不存在时不报错
func (lr *LobbyRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}

	name, err := lr.storedName(ctx, lr.client, id)
	if err != nil {
		return apperrors.NewStoreError("delete", err)
	}

	_, err = lr.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, lr.docKey(id))
		if name != "" {
			pipe.ZRem(ctx, lr.indexKey(), indexMember(name, id))
		}
		lr.publish(ctx, pipe, id, OpDeleted)
		return nil
	})
	return apperrors.NewStoreError("delete", err)
}

// Count 返回索引中的房间数量
func (lr *LobbyRepository) Count(ctx context.Context) (int64, error) {
	n, err := lr.client.ZCard(ctx, lr.indexKey()).Result()
	if err != nil {
		return 0, apperrors.NewStoreError("count", err)
	}
	return n, nil
}

// Watch 订阅房间变更，ctx 取消后关闭返回的 channel
func (lr *LobbyRepository) Watch(ctx context.Context, id string) (<-chan ChangeEvent, error) {
	pubsub := lr.client.Subscribe(ctx, lr.changesChannel(id))
	// 等待订阅确认，保证返回后不会丢失事件
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, apperrors.NewStoreError("watch", err)
	}

	events := make(chan ChangeEvent, 16)
	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("⚠️ 无法解析房间变更事件: %v", err)
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// --- 辅助方法 ---

// abortError 标记由调用方回调返回的错误，避免被当作存储错误包装
type abortError struct {
	err error
}

func (e abortError) Error() string { return e.err.Error() }
func (e abortError) Unwrap() error { return e.err }

// watch 在 WATCH 保护下执行 txf，事务被打断时重试
func (lr *LobbyRepository) watch(ctx context.Context, op, id string, txf func(tx *redis.Tx) error) error {
	key := lr.docKey(id)
	for attempt := 1; attempt <= lr.maxRetries; attempt++ {
		err := lr.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			log.Printf("🔁 房间 %s %s 写冲突，重试 %d/%d", id, op, attempt, lr.maxRetries)
			continue
		}

		var abort abortError
		if errors.As(err, &abort) {
			return abort.err
		}
		var gameErr *apperrors.GameError
		if errors.As(err, &gameErr) {
			return err
		}
		return apperrors.NewStoreError(op, err)
	}
	return apperrors.ErrUpdateConflict
}

// mergeExisting 对已存在的文档合并写入字段
func (lr *LobbyRepository) mergeExisting(ctx context.Context, op, id string, fields map[string]any, changeOp string) error {
	if !validID(id) {
		return apperrors.ErrLobbyNotFound
	}

	key := lr.docKey(id)
	return lr.watch(ctx, op, id, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.ErrLobbyNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			lr.publish(ctx, pipe, id, changeOp)
			return nil
		})
		return err
	})
}

// storedName 读取已存储的房间名，不存在返回空串
func (lr *LobbyRepository) storedName(ctx context.Context, c redis.Cmdable, id string) (string, error) {
	raw, err := c.HGet(ctx, lr.docKey(id), "name").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}

	var name string
	if err := json.Unmarshal([]byte(raw), &name); err != nil {
		return "", nil
	}
	return name, nil
}

// reindex 房间名变化时更新名称索引
func (lr *LobbyRepository) reindex(ctx context.Context, pipe redis.Pipeliner, id, oldName, newName string) {
	if oldName != "" && oldName != newName {
		pipe.ZRem(ctx, lr.indexKey(), indexMember(oldName, id))
	}
	pipe.ZAdd(ctx, lr.indexKey(), redis.Z{Member: indexMember(newName, id)})
}

func (lr *LobbyRepository) publish(ctx context.Context, pipe redis.Pipeliner, id, op string) {
	data, _ := json.Marshal(ChangeEvent{LobbyID: id, Op: op})
	pipe.Publish(ctx, lr.changesChannel(id), data)
}

func (lr *LobbyRepository) docKey(id string) string {
	return lr.collection + ":" + id
}

func (lr *LobbyRepository) indexKey() string {
	return lr.collection + ":names"
}

func (lr *LobbyRepository) changesChannel(id string) string {
	return lr.collection + ":changes:" + id
}

func indexMember(name, id string) string {
	return name + indexSeparator + id
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
