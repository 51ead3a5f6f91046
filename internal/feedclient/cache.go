package feedclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"photo-feed/internal/logging"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned by a fetch whose result was discarded because an
// optimistic write or another refetch changed the query while it ran.
var ErrSuperseded = errors.New("feedclient: fetch superseded by a newer cache write")

const (
	DefaultPageSize   = 12
	DefaultMaxQueries = 16
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier surfaces user-visible outcomes of mutations.
type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type Options struct {
	PageSize   int
	MaxQueries int
	Notifier   Notifier
}

// query is one infinite feed: the pages loaded so far for a sort key and
// order. gen changes whenever the pages are replaced wholesale.
type query struct {
	key    QueryKey
	pages  []Page
	gen    uint64
	photos map[string]*photoState
}

// photoState tracks optimistic edits to the cached copies of one photo.
// version changes on every edit. overflow holds comments that optimistic
// writes pushed out of the preview, newest first.
type photoState struct {
	version  uint64
	overflow []Comment
}

func (q *query) photo(id string) *photoState {
	if q.photos == nil {
		q.photos = map[string]*photoState{}
	}
	st, ok := q.photos[id]
	if !ok {
		st = &photoState{}
		q.photos[id] = st
	}
	return st
}

func (q *query) locate(page, index int, id string) *Photo {
	if page >= len(q.pages) || index >= len(q.pages[page].Data) {
		return nil
	}
	p := &q.pages[page].Data[index]
	if p.ID != id {
		return nil
	}
	return p
}

func (q *query) exhausted() bool {
	return len(q.pages) > 0 && !q.pages[len(q.pages)-1].Pagination.HasNextPage
}

// Cache holds feed pages per QueryKey and applies comment mutations
// optimistically. It is safe for concurrent use.
type Cache struct {
	api      API
	pageSize int
	notifier Notifier
	log      zerolog.Logger

	mu      sync.Mutex
	queries *lru.Cache[QueryKey, *query]
	// epoch advances on every optimistic write and every successful upload;
	// fetches started under an older epoch are dropped.
	epoch uint64
	seq   uint64

	flight singleflight.Group
}

func NewCache(api API, opts Options) (*Cache, error) {
	if api == nil {
		return nil, errors.New("feedclient: api is required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxQueries <= 0 {
		opts.MaxQueries = DefaultMaxQueries
	}
	queries, err := lru.New[QueryKey, *query](opts.MaxQueries)
	if err != nil {
		return nil, err
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(Notice) {})
	}
	return &Cache{
		api:      api,
		pageSize: opts.PageSize,
		notifier: notifier,
		log:      logging.Component("feedclient"),
		queries:  queries,
	}, nil
}

func (c *Cache) nextSeq() uint64 {
	c.seq++
	return c.seq
}

// Pages returns a deep copy of the pages loaded for key.
func (c *Cache) Pages(key QueryKey) []Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queries.Get(key)
	if !ok {
		return nil
	}
	out := make([]Page, len(q.pages))
	for i := range q.pages {
		out[i] = q.pages[i].clone()
	}
	return out
}

// HasNextPage is true until the last loaded page reports no successor.
func (c *Cache) HasNextPage(key QueryKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.queries.Peek(key)
	return !ok || !q.exhausted()
}

// FetchNextPage loads the page after the last one cached for key. It reports
// false without calling the server once the feed is exhausted. Concurrent
// calls for one key share a single request.
func (c *Cache) FetchNextPage(ctx context.Context, key QueryKey) (bool, error) {
	v, err, _ := c.flight.Do("next|"+key.String(), func() (any, error) {
		return c.fetchNextPage(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (c *Cache) fetchNextPage(ctx context.Context, key QueryKey) (bool, error) {
	c.mu.Lock()
	q, ok := c.queries.Get(key)
	if !ok {
		q = &query{key: key}
		c.queries.Add(key, q)
	}
	if q.exhausted() {
		c.mu.Unlock()
		return false, nil
	}
	var cursor string
	if n := len(q.pages); n > 0 && q.pages[n-1].Pagination.NextCursor != nil {
		cursor = *q.pages[n-1].Pagination.NextCursor
	}
	epoch, gen, loaded := c.epoch, q.gen, len(q.pages)
	c.mu.Unlock()

	page, err := c.api.ListPhotos(ctx, ListParams{Cursor: cursor, Limit: c.pageSize, SortBy: key.SortBy, Order: key.Order})
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.queries.Peek(key)
	if !ok || cur != q || c.epoch != epoch || q.gen != gen || len(q.pages) != loaded {
		return false, ErrSuperseded
	}
	q.pages = append(q.pages, *page)
	return true, nil
}

// Refetch reloads as many pages as key currently holds, from the start, and
// swaps them in atomically. Uncached keys are ignored. Concurrent calls share
// one request only when no optimistic write happened between them.
func (c *Cache) Refetch(ctx context.Context, key QueryKey) error {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	_, err, _ := c.flight.Do(fmt.Sprintf("refetch|%s|%d", key, epoch), func() (any, error) {
		return nil, c.refetch(ctx, key, epoch)
	})
	return err
}

func (c *Cache) refetch(ctx context.Context, key QueryKey, epoch uint64) error {
	c.mu.Lock()
	q, ok := c.queries.Peek(key)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	want := max(len(q.pages), 1)
	c.mu.Unlock()

	pages := make([]Page, 0, want)
	cursor := ""
	for len(pages) < want {
		page, err := c.api.ListPhotos(ctx, ListParams{Cursor: cursor, Limit: c.pageSize, SortBy: key.SortBy, Order: key.Order})
		if err != nil {
			return err
		}
		pages = append(pages, *page)
		if !page.Pagination.HasNextPage || page.Pagination.NextCursor == nil {
			break
		}
		cursor = *page.Pagination.NextCursor
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.queries.Peek(key)
	if !ok || cur != q {
		return nil
	}
	if c.epoch != epoch {
		return ErrSuperseded
	}
	q.pages = pages
	q.gen = c.nextSeq()
	q.photos = nil
	return nil
}

// Invalidate refetches every cached query. A superseded refetch is not an
// error: it lost to a write that runs its own refetch under a newer epoch.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	keys := c.queries.Keys()
	c.mu.Unlock()

	var errs []error
	for _, key := range keys {
		if err := c.Refetch(ctx, key); err != nil && !errors.Is(err, ErrSuperseded) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// touchedEntry is the pre-mutation copy of one cached photo, plus the
// overflow of its query at that moment.
type touchedEntry struct {
	key      QueryKey
	gen      uint64
	page     int
	index    int
	before   Photo
	overflow []Comment
	version  uint64
}

// snapshot is what one optimistic comment changed, and how to undo it.
type snapshot struct {
	photoID   string
	commentID string
	entries   []touchedEntry
}

func newProvisionalComment(photoID, content, authorName string) Comment {
	author := strings.TrimSpace(authorName)
	if author == "" {
		author = AnonymousAuthor
	}
	return Comment{
		ID:         ProvisionalPrefix + uuid.NewString(),
		Content:    content,
		AuthorName: author,
		PhotoID:    photoID,
		CreatedAt:  time.Now().UTC(),
	}
}

// applyComment prepends the provisional comment to every cached copy of the
// photo and returns the snapshot needed to undo exactly this change.
func (c *Cache) applyComment(pc Comment) *snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	snap := &snapshot{photoID: pc.PhotoID, commentID: pc.ID}
	for _, key := range c.queries.Keys() {
		q, ok := c.queries.Peek(key)
		if !ok {
			continue
		}
		var st *photoState
		var overflow []Comment
		for pi := range q.pages {
			for i := range q.pages[pi].Data {
				p := &q.pages[pi].Data[i]
				if p.ID != pc.PhotoID {
					continue
				}
				first := st == nil
				if first {
					st = q.photo(pc.PhotoID)
					overflow = cloneComments(st.overflow)
					st.version = c.nextSeq()
				}
				snap.entries = append(snap.entries, touchedEntry{
					key: key, gen: q.gen, page: pi, index: i,
					before: p.clone(), overflow: overflow, version: st.version,
				})

				comments := make([]Comment, 0, len(p.Comments)+1)
				comments = append(comments, pc)
				comments = append(comments, p.Comments...)
				if len(comments) > PreviewSize {
					if first {
						st.overflow = append(cloneComments(comments[PreviewSize:]), st.overflow...)
					}
					comments = comments[:PreviewSize]
				}
				p.Comments = comments
				p.CommentCount++
			}
		}
	}
	return snap
}

// rollback undoes one optimistic comment. Copies nobody edited since are
// restored verbatim. Copies another mutation also edited lose only this
// comment and its count increment, and the preview is refilled from the
// comments optimistic writes pushed out. Queries whose pages were refetched in
// the meantime already hold server state and are left alone.
func (c *Cache) rollback(snap *snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Entries of one query are contiguous.
	for start := 0; start < len(snap.entries); {
		end := start + 1
		for end < len(snap.entries) && snap.entries[end].key == snap.entries[start].key {
			end++
		}
		c.rollbackQuery(snap, snap.entries[start:end])
		start = end
	}
}

func (c *Cache) rollbackQuery(snap *snapshot, entries []touchedEntry) {
	first := entries[0]
	q, ok := c.queries.Peek(first.key)
	if !ok || q.gen != first.gen {
		return
	}
	st := q.photo(snap.photoID)
	verbatim := st.version == first.version

	var pool []Comment
	if !verbatim {
		pool = withoutComment(st.overflow, snap.commentID)
	}
	used := 0
	for _, e := range entries {
		p := q.locate(e.page, e.index, snap.photoID)
		if p == nil {
			continue
		}
		if verbatim {
			*p = e.before.clone()
			continue
		}
		used = max(used, retract(p, snap.commentID, pool))
	}

	if verbatim {
		st.overflow = cloneComments(first.overflow)
	} else {
		st.overflow = pool[used:]
	}
	st.version = c.nextSeq()
}

// retract drops comment id from the preview, takes back its count increment
// and tops the preview up from pool. It returns how many pool entries it used.
func retract(p *Photo, id string, pool []Comment) int {
	if p.CommentCount > 0 {
		p.CommentCount--
	}
	kept := make([]Comment, 0, PreviewSize)
	for _, cm := range p.Comments {
		if cm.ID != id {
			kept = append(kept, cm)
		}
	}
	n := 0
	for len(kept) < PreviewSize && n < len(pool) {
		kept = append(kept, pool[n])
		n++
	}
	p.Comments = kept
	return n
}

func withoutComment(list []Comment, id string) []Comment {
	out := make([]Comment, 0, len(list))
	for _, cm := range list {
		if cm.ID != id {
			out = append(out, cm)
		}
	}
	return out
}

func cloneComments(list []Comment) []Comment {
	if list == nil {
		return nil
	}
	return append(make([]Comment, 0, len(list)), list...)
}

// AddComment shows the comment in every cached copy of the photo at once,
// then sends it. On failure this mutation's change is rolled back and an
// error notice raised. Either way the cached queries are refetched so server
// ids and counts replace the provisional state.
func (c *Cache) AddComment(ctx context.Context, photoID, content, authorName string) (*Comment, error) {
	snap := c.applyComment(newProvisionalComment(photoID, content, authorName))

	created, err := c.api.CreateComment(ctx, photoID, content, authorName)
	if err != nil {
		c.rollback(snap)
		c.log.Warn().Err(err).Str("photo_id", photoID).Msg("comment failed, optimistic update rolled back")
		c.notifier.Notify(Notice{Level: NoticeError, Message: "Failed to add comment"})
	}

	if ierr := c.Invalidate(context.WithoutCancel(ctx)); ierr != nil {
		c.log.Warn().Err(ierr).Msg("refetch after comment failed")
	}
	return created, err
}

// UploadPhoto sends the photo and refreshes every cached query on success.
func (c *Cache) UploadPhoto(ctx context.Context, up Upload) (*Photo, error) {
	photo, err := c.api.UploadPhoto(ctx, up)
	if err != nil {
		c.log.Warn().Err(err).Str("filename", up.Filename).Msg("upload failed")
		c.notifier.Notify(Notice{Level: NoticeError, Message: "Failed to upload photo"})
		return nil, err
	}
	c.notifier.Notify(Notice{Level: NoticeSuccess, Message: "Photo uploaded"})

	// Refetches already in flight predate the new photo.
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()

	if ierr := c.Invalidate(context.WithoutCancel(ctx)); ierr != nil {
		c.log.Warn().Err(ierr).Msg("refetch after upload failed")
	}
	return photo, nil
}
