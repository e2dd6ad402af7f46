// Package redisstore is the production implementation of store.Store,
// backed by github.com/redis/go-redis/v9. Its concern (namespace/key/field
// scalar+list+set persistence) is the same shape the teacher's db.Proxy
// wraps around pgx; only the underlying client differs.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"hostd/internal/store"
)

// configuration mirrors the teacher's pkg/db configuration struct, parsed
// from the same viper instance under a `Store.*` prefix instead of
// `Database.*`.
type configuration struct {
	Addr     string
	Password string
	DB       int
}

func parseConfiguration() configuration {
	config := configuration{Addr: "localhost:6379", DB: 0}

	if viper.IsSet("Store.Addr") {
		config.Addr = viper.GetString("Store.Addr")
	}
	if viper.IsSet("Store.Password") {
		config.Password = viper.GetString("Store.Password")
	}
	if viper.IsSet("Store.DB") {
		config.DB = viper.GetInt("Store.DB")
	}

	return config
}

// Store is a redis-backed store.Store. Every (namespace, key, field)
// triple is addressed by a single composed redis key; lists and sets use
// native redis list/set types rather than re-deriving them on top of
// strings.
type Store struct {
	client *redis.Client
	ctx    context.Context
}

// New dials redis using configuration read from viper (Store.Addr,
// Store.Password, Store.DB).
func New() *Store {
	config := parseConfiguration()

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &Store{client: client, ctx: context.Background()}
}

func scalarKey(namespace, key, field string) string {
	return fmt.Sprintf("%s:%s:%s", namespace, key, field)
}

func (s *Store) GetInt(namespace, key, field string) (int64, error) {
	v, err := s.client.Get(s.ctx, scalarKey(namespace, key, field)).Int64()
	if err == redis.Nil {
		return 0, store.ErrNotFound
	}
	return v, err
}

func (s *Store) SetInt(namespace, key, field string, value int64) error {
	return s.client.Set(s.ctx, scalarKey(namespace, key, field), value, 0).Err()
}

func (s *Store) GetString(namespace, key, field string) (string, error) {
	v, err := s.client.Get(s.ctx, scalarKey(namespace, key, field)).Result()
	if err == redis.Nil {
		return "", store.ErrNotFound
	}
	return v, err
}

func (s *Store) SetString(namespace, key, field string, value string) error {
	return s.client.Set(s.ctx, scalarKey(namespace, key, field), value, 0).Err()
}

func (s *Store) GetList(namespace, key, field string) ([][]byte, error) {
	vals, err := s.client.LRange(s.ctx, scalarKey(namespace, key, field), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (s *Store) SetList(namespace, key, field string, values [][]byte) error {
	k := scalarKey(namespace, key, field)

	pipe := s.client.TxPipeline()
	pipe.Del(s.ctx, k)
	if len(values) > 0 {
		elems := make([]interface{}, len(values))
		for i, v := range values {
			elems[i] = v
		}
		pipe.RPush(s.ctx, k, elems...)
	}
	_, err := pipe.Exec(s.ctx)
	return err
}

func (s *Store) AppendList(namespace, key, field string, value []byte) error {
	return s.client.RPush(s.ctx, scalarKey(namespace, key, field), value).Err()
}

func (s *Store) GetSet(namespace, key, field string) ([]string, error) {
	return s.client.SMembers(s.ctx, scalarKey(namespace, key, field)).Result()
}

func (s *Store) AddToSet(namespace, key, field string, member string) error {
	return s.client.SAdd(s.ctx, scalarKey(namespace, key, field), member).Err()
}

func (s *Store) RemoveFromSet(namespace, key, field string, member string) error {
	return s.client.SRem(s.ctx, scalarKey(namespace, key, field), member).Err()
}

func (s *Store) Delete(namespace, key, field string) error {
	return s.client.Del(s.ctx, scalarKey(namespace, key, field)).Err()
}

var _ store.Store = (*Store)(nil)
