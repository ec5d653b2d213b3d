package asset

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	// RefScheme は成果物ハンドルの接頭辞です。
	RefScheme = "blob:"

	defaultCleanupInterval = 15 * time.Minute
)

// ErrNotFound は参照に対応する成果物がストアに存在しないことを表します。
var ErrNotFound = errors.New("artifact not found")

type blob struct {
	data     []byte
	mimeType string
}

// Store は生成されたメディアのバイト列をメモリ上に保持し、domain.Artifact で参照させます。
// ttl が 0 の場合はセッションの間ずっと保持します。
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewStore は新しい Store を生成します。
func NewStore(ttl time.Duration) *Store {
	expiration := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
	}
	return &Store{
		cache: cache.New(expiration, defaultCleanupInterval),
		ttl:   ttl,
	}
}

// Put はバイト列のコピーを保存し、参照用の Artifact を返します。
func (s *Store) Put(data []byte, mimeType string) (domain.Artifact, error) {
	if len(data) == 0 {
		return domain.Artifact{}, fmt.Errorf("空の成果物は保存できません")
	}
	ref := RefScheme + uuid.NewString()
	s.cache.Set(ref, blob{data: append([]byte(nil), data...), mimeType: mimeType}, cache.DefaultExpiration)

	return domain.Artifact{Ref: ref, MIMEType: mimeType, Size: len(data)}, nil
}

// Get は Artifact が指すバイト列を返します。
func (s *Store) Get(a domain.Artifact) ([]byte, error) {
	if !strings.HasPrefix(a.Ref, RefScheme) {
		return nil, fmt.Errorf("不正な成果物参照です %q: %w", a.Ref, ErrNotFound)
	}
	v, ok := s.cache.Get(a.Ref)
	if !ok {
		return nil, fmt.Errorf("成果物 %s: %w", a.Ref, ErrNotFound)
	}
	b, ok := v.(blob)
	if !ok {
		return nil, fmt.Errorf("成果物 %s の型が不正です", a.Ref)
	}
	return b.data, nil
}

// Delete は成果物を破棄します。存在しない場合は何もしません。
func (s *Store) Delete(a domain.Artifact) {
	s.cache.Delete(a.Ref)
}

// Len は保持している成果物の数を返します。
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
