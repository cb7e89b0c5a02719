package routing

// Observer is notified of every decision after Route has built it.
// Implementations must not block: Route calls them inline.
type Observer interface {
	ObserveDecision(d Decision)
}

// CacheResult labels the outcome of one response cache operation.
type CacheResult string

const (
	CacheHit     CacheResult = "hit"
	CacheMiss    CacheResult = "miss"
	CacheError   CacheResult = "error"
	CacheSkipped CacheResult = "skipped"
	CacheStored  CacheResult = "stored"
)

// CacheObserver is notified of response cache lookups and writes.
type CacheObserver interface {
	ObserveCacheLookup(intent Intent, result CacheResult)
	ObserveCacheWrite(intent Intent, result CacheResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(d Decision)

// ObserveDecision implements Observer.
func (f ObserverFunc) ObserveDecision(d Decision) { f(d) }

type multiObserver []Observer

func (m multiObserver) ObserveDecision(d Decision) {
	for _, o := range m {
		o.ObserveDecision(d)
	}
}

// Observers fans a decision out to several observers in order.
// Nil entries are skipped.
func Observers(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type nopCacheObserver struct{}

func (nopCacheObserver) ObserveCacheLookup(Intent, CacheResult) {}
func (nopCacheObserver) ObserveCacheWrite(Intent, CacheResult)  {}
