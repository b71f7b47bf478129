package benchmark

import (
	"sync"

	"github.com/Snawoot/lfmap"
	"github.com/alphadose/haxmap"
	"github.com/fufuok/cmap"
	"github.com/llxisdsh/pb"
	csmap "github.com/mhmtszr/concurrent-swiss-map"
	orcaman_map "github.com/orcaman/concurrent-map/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/zhangyunhao116/skipmap"

	xpsync "github.com/weolar/miniblink49-sub156"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store is a map guarded by the lock under test, or a concurrent map used
// as a reference point.
type Store interface {
	Store(key, value int)
	Load(key int) (int, bool)
}

type impl struct {
	name string
	make func(shards int) Store
}

// lockImpls are plain maps behind one of the locks being compared.
var lockImpls = []impl{
	{"xpsync.SRWLock", func(int) Store { return newRWLockedMap(&xpsync.SRWLock{}) }},
	{"sync.RWMutex", func(int) Store { return newRWLockedMap(&sync.RWMutex{}) }},
	{"xsync.RBMutex", func(int) Store { return &rbMutexMap{mu: xsync.NewRBMutex(), m: make(map[int]int)} }},
	{"xpsync.CriticalSection", func(int) Store { return newLockedMap(xpsync.NewCriticalSection(4000)) }},
	{"sync.Mutex", func(int) Store { return newLockedMap(&sync.Mutex{}) }},
	{"xpsync.SRWLockGroup", func(shards int) Store { return newGroupMap(shards) }},
}

// mapImpls are concurrent maps that need no external lock.
var mapImpls = []impl{
	{"sync.Map", func(int) Store { return &syncMapAdapter{&sync.Map{}} }},
	{"xsync.Map", func(int) Store { return xsync.NewMap[int, int]() }},
	{"pb.MapOf", func(int) Store { return &pb.MapOf[int, int]{} }},
	{"haxmap", func(int) Store { return setGet(haxmap.New[int, int]()) }},
	{"skipmap", func(int) Store { return skipmap.New[int, int]() }},
	{"fufuok/cmap", func(int) Store { return setGet(cmap.NewOf[int, int]()) }},
	{"concurrent-swiss-map", func(int) Store { return csmap.New(csmap.WithShardCount[int, int](32)) }},
	{"orcaman/concurrent-map", func(int) Store {
		return setGet(orcaman_map.NewWithCustomShardingFunction[int, int](
			func(key int) uint32 { return uint32(key) },
		))
	}},
	{"lfmap", func(int) Store { return setGet(lfmap.New[int, int]()) }},
}

// ============================================================================
// Locked Maps
// ============================================================================

type rwLocker interface {
	sync.Locker
	RLock()
	RUnlock()
}

type rwLockedMap[L rwLocker] struct {
	mu L
	m  map[int]int
}

func newRWLockedMap[L rwLocker](mu L) *rwLockedMap[L] {
	return &rwLockedMap[L]{mu: mu, m: make(map[int]int)}
}

func (a *rwLockedMap[L]) Store(k, v int) {
	a.mu.Lock()
	a.m[k] = v
	a.mu.Unlock()
}

func (a *rwLockedMap[L]) Load(k int) (int, bool) {
	a.mu.RLock()
	v, ok := a.m[k]
	a.mu.RUnlock()
	return v, ok
}

type lockedMap[L sync.Locker] struct {
	mu L
	m  map[int]int
}

func newLockedMap[L sync.Locker](mu L) *lockedMap[L] {
	return &lockedMap[L]{mu: mu, m: make(map[int]int)}
}

func (a *lockedMap[L]) Store(k, v int) {
	a.mu.Lock()
	a.m[k] = v
	a.mu.Unlock()
}

func (a *lockedMap[L]) Load(k int) (int, bool) {
	a.mu.Lock()
	v, ok := a.m[k]
	a.mu.Unlock()
	return v, ok
}

type rbMutexMap struct {
	mu *xsync.RBMutex
	m  map[int]int
}

func (a *rbMutexMap) Store(k, v int) {
	a.mu.Lock()
	a.m[k] = v
	a.mu.Unlock()
}

func (a *rbMutexMap) Load(k int) (int, bool) {
	t := a.mu.RLock()
	v, ok := a.m[k]
	a.mu.RUnlock(t)
	return v, ok
}

// groupMap shards keys over plain maps and locks each shard through an
// SRWLockGroup, so shard locks come and go with use.
type groupMap struct {
	g      *xpsync.SRWLockGroup[int]
	shards []map[int]int
	mask   int
}

func newGroupMap(shards int) *groupMap {
	n := 1
	for n < shards {
		n <<= 1
	}
	a := &groupMap{
		g:      xpsync.NewSRWLockGroup[int](pb.WithPresize(n)),
		shards: make([]map[int]int, n),
		mask:   n - 1,
	}
	for i := range a.shards {
		a.shards[i] = make(map[int]int)
	}
	return a
}

func (a *groupMap) Store(k, v int) {
	s := k & a.mask
	a.g.Lock(s)
	a.shards[s][k] = v
	a.g.Unlock(s)
}

func (a *groupMap) Load(k int) (int, bool) {
	s := k & a.mask
	a.g.RLock(s)
	v, ok := a.shards[s][k]
	a.g.RUnlock(s)
	return v, ok
}

// ============================================================================
// Map Adapters
// ============================================================================

type syncMapAdapter struct{ m *sync.Map }

func (a *syncMapAdapter) Store(k, v int) { a.m.Store(k, v) }
func (a *syncMapAdapter) Load(k int) (int, bool) {
	v, ok := a.m.Load(k)
	if ok {
		return v.(int), true
	}
	return 0, false
}

// setGetter covers the maps with a Set/Get API.
type setGetter interface {
	Set(key, value int)
	Get(key int) (int, bool)
}

type setGetAdapter[M setGetter] struct{ m M }

func (a setGetAdapter[M]) Store(k, v int)         { a.m.Set(k, v) }
func (a setGetAdapter[M]) Load(k int) (int, bool) { return a.m.Get(k) }

func setGet[M setGetter](m M) Store { return setGetAdapter[M]{m} }
