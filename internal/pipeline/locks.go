package pipeline

import "sync"

// keyedMutex serializes critical sections per key. Submissions to
// different keys never block each other; mutexes are kept forever, which
// is fine for the challenge-count cardinality we expect.
type keyedMutex struct {
	mutexes sync.Map
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	value, _ := k.mutexes.LoadOrStore(key, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}
