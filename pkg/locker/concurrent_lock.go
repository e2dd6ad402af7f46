package locker

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"hostd/pkg/logger"
)

// ConcurrentLocker :
// Used to provide a concurrent lock mechanism allowing to share the
// access to a bounded pool of per-resource locks. Multiple callers can
// wait on a shared resource while still providing individual locks per
// resource name, instead of locking an entire table/collection for the
// mutation of a single element.
//
// We could create a lock per resource but an unbounded map would let a
// pathological caller (or a huge game count) grow memory without limit.
// Instead we define a certain number of locks (configurable) and assign
// each lock to a resource on demand. If all of them are currently
// assigned, `Acquire` blocks until one is released.
//
// The `locker` is the top level mutex that allows to use this object
// concurrently without losing thread safety.
//
// The `locks` defines the bounded pool of locks that can be handed out
// to protect the concurrent access to a particular resource.
//
// The `availableLocks` tracks which of the locks are free. Used by
// `Acquire` to hand out a lock or block until one frees up.
//
// The `registered` maps a resource name to the index of the lock
// currently serving it, so repeated `Acquire` calls for the same
// resource return the same lock instead of deadlocking on the pool.
//
// The `cout` notifies errors and information about the pool's activity.
type ConcurrentLocker struct {
	locker         sync.Mutex
	locks          []*Lock
	availableLocks chan int
	registered     map[string]int
	cout           logger.Logger
}

// Lock :
// Protects the access to a single resource and allows concurrent
// callers to either exclude each other entirely (`CriticalLock`) or
// allow any number of concurrent readers as long as no writer holds
// the lock (`SimpleLock`).
//
// The `id` defines the index of this lock in the internal channel of
// the `ConcurrentLocker`. Negative when the lock is not in use.
//
// The `res` defines the resource currently assigned to this lock.
//
// The `use` defines how many concurrent callers currently rely on this
// lock, so the pool knows when it can be returned to `availableLocks`.
//
// The `guard` is the actual mutual-exclusion primitive protecting the
// resource: readers (`SimpleLock`) take a shared hold, writers
// (`CriticalLock`) take an exclusive hold.
type Lock struct {
	id    int
	res   string
	use   int
	guard sync.RWMutex
}

// configuration :
// Used internally to regroup all the variables that can be used to
// customize the number of locks served in parallel by a `ConcurrentLocker`.
//
// The `LockCount` defines the number of locks that can be distributed
// amongst resources before a call to `Acquire` becomes blocking.
// The default value is `64`.
type configuration struct {
	LockCount int
}

// parseConfiguration :
// Used to parse the configuration file and environment variables
// provided when executing this server to get the values of the
// `ConcurrentLocker` properties.
//
// Returns the parsed configuration where all non-set properties have
// their default values.
func parseConfiguration() configuration {
	config := configuration{
		LockCount: 64,
	}

	if viper.IsSet("Concurrent.LockCount") {
		config.LockCount = viper.GetInt("Concurrent.LockCount")
	}

	return config
}

// NewConcurrentLocker :
// Perform the creation of a new `ConcurrentLocker` with configuration
// values retrieved from the environment variables and conf file
// provided to the server.
//
// The `log` will be assigned as the internal logging mean for this
// locker.
//
// Returns the created concurrent locker.
func NewConcurrentLocker(log logger.Logger) *ConcurrentLocker {
	config := parseConfiguration()

	allLocks := make([]*Lock, config.LockCount)
	ids := make(chan int, config.LockCount)

	for id := range allLocks {
		allLocks[id] = &Lock{
			id:  -1,
			res: "",
			use: 0,
		}

		ids <- id
	}

	return &ConcurrentLocker{
		locker:         sync.Mutex{},
		locks:          allLocks,
		availableLocks: ids,
		registered:     make(map[string]int),
		cout:           log,
	}
}

// Acquire :
// Used to try to acquire a locker for the specified resource. This
// method will query the internal lockers and see whether one instance
// is already serving this resource. If this is the case the locker
// will be returned with its use count increased. Otherwise one of the
// free locks in the pool is assigned to this resource; if none are
// free this call blocks until one is released.
//
// The `resource` defines the name of the resource for which a locker
// should be acquired (typically a game id).
//
// Returns the locker acquired for this resource.
func (cl *ConcurrentLocker) Acquire(resource string) *Lock {
	var l *Lock

	func() {
		cl.locker.Lock()
		defer cl.locker.Unlock()

		id, ok := cl.registered[resource]
		if ok {
			l = cl.locks[id]
			l.use++

			cl.cout.Trace(logger.Debug, "locker", fmt.Sprintf("adding user to resource %q (id: %d, usage: %d, available: %d)", l.res, l.id, l.use, len(cl.availableLocks)))
		}
	}()

	if l != nil {
		return l
	}

	id := <-cl.availableLocks

	func() {
		cl.locker.Lock()
		defer cl.locker.Unlock()

		cl.registered[resource] = id

		l = cl.locks[id]
		l.id = id
		l.res = resource
		l.use++

		cl.cout.Trace(logger.Debug, "locker", fmt.Sprintf("creating locker on %q (id: %d, available: %d)", l.res, l.id, len(cl.availableLocks)))
	}()

	return l
}

// Release :
// Used to perform the release of the lock provided in input and put
// it back in the pool of available locks once nobody else is using
// it anymore.
//
// The `lock` defines the locker to release. If this value is `nil`
// nothing happens.
func (cl *ConcurrentLocker) Release(lock *Lock) {
	if lock == nil {
		return
	}

	cl.locker.Lock()
	defer cl.locker.Unlock()

	lock.use--

	if lock.use > 0 {
		return
	}

	delete(cl.registered, lock.res)
	cl.availableLocks <- lock.id

	cl.cout.Trace(logger.Debug, "locker", fmt.Sprintf("releasing locker on %q at index %d (available: %d)", lock.res, lock.id, len(cl.availableLocks)))

	lock.id = -1
	lock.res = ""
}

// CriticalLock :
// Acquires exclusive access to the resource protected by this lock.
// Blocks until no reader or writer holds the lock.
func (l *Lock) CriticalLock() {
	l.guard.Lock()
}

// CriticalUnlock :
// Releases an exclusive hold acquired through `CriticalLock`.
func (l *Lock) CriticalUnlock() {
	l.guard.Unlock()
}

// SimpleLock :
// Acquires shared access to the resource protected by this lock.
// Any number of simple holds can coexist, but none can coexist with
// a critical hold.
func (l *Lock) SimpleLock() {
	l.guard.RLock()
}

// SimpleUnlock :
// Releases a shared hold acquired through `SimpleLock`.
func (l *Lock) SimpleUnlock() {
	l.guard.RUnlock()
}
