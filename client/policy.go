package client

import "fmt"

// CachePolicy decides whether results come from the cache, the server or both
type CachePolicy int

const (
	// ReturnCacheDataElseFetch returns cached data when the cache can
	// satisfy the query, otherwise fetches from the server
	ReturnCacheDataElseFetch CachePolicy = iota
	// FetchIgnoringCacheData always fetches from the server; the response
	// is still written to the cache
	FetchIgnoringCacheData
	// ReturnCacheDataDontFetch only reads the cache and fails with
	// ErrCacheMiss when it can't satisfy the query
	ReturnCacheDataDontFetch
	// ReturnCacheDataAndFetch returns cached data when there is some, then
	// fetches from the server
	ReturnCacheDataAndFetch
)

var cachePolicyNames = map[CachePolicy]string{
	ReturnCacheDataElseFetch: "return-cache-data-else-fetch",
	FetchIgnoringCacheData:   "fetch-ignoring-cache-data",
	ReturnCacheDataDontFetch: "return-cache-data-dont-fetch",
	ReturnCacheDataAndFetch:  "return-cache-data-and-fetch",
}

func (p CachePolicy) String() string {
	if n, ok := cachePolicyNames[p]; ok {
		return n
	}

	return fmt.Sprintf("CachePolicy(%d)", int(p))
}

func ParseCachePolicy(s string) (CachePolicy, error) {
	if s == "" {
		return ReturnCacheDataElseFetch, nil
	}

	for p, n := range cachePolicyNames {
		if n == s {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown cache policy %q", s)
}

func (p CachePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *CachePolicy) UnmarshalText(text []byte) error {
	v, err := ParseCachePolicy(string(text))
	if err != nil {
		return err
	}

	*p = v

	return nil
}
