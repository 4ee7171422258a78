// Command httpcache-proxy wires the cache middleware in front of an
// httputil.ReverseProxy, serving cached upstream responses from memory or
// disk.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"github.com/gcristofol/httpcache"
	"github.com/gcristofol/httpcache/disk"
)

const defaultListen = "0.0.0.0:8080"

var (
	listen             string
	upstreamURL        string
	useDisk            bool
	dir                string
	verbose            bool
	caseSensitivePaths bool
	maxBodyBytes       int64
)

func init() {
	flag.StringVar(&listen, "listen", defaultListen, "the host and port to bind to")
	flag.StringVar(&upstreamURL, "upstream", "", "the upstream URL to reverse proxy to (required)")
	flag.StringVar(&dir, "dir", "", "directory to store cache data in; if empty, cache is in-memory")
	flag.BoolVar(&useDisk, "disk", false, "whether to store cache data to disk (implied by -dir)")
	flag.BoolVar(&verbose, "v", false, "show verbose diagnostic output")
	flag.BoolVar(&caseSensitivePaths, "case-sensitive-paths", false, "key cache entries by path verbatim instead of upper-casing it")
	flag.Int64Var(&maxBodyBytes, "max-body-bytes", 2<<20, "maximum response body size buffered for caching")
	flag.Parse()

	if verbose {
		httpcache.DebugLogging = true
	}
}

func main() {
	if upstreamURL == "" {
		fmt.Fprintln(os.Stderr, "httpcache-proxy: -upstream is required")
		os.Exit(2)
	}

	target, err := url.Parse(upstreamURL)
	if err != nil {
		log.Fatalf("invalid -upstream %q: %s", upstreamURL, err)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)

	store, err := newStore()
	if err != nil {
		log.Fatal(err)
	}

	mw := httpcache.NewMiddleware(proxy, store,
		httpcache.WithMaximumBodySize(maxBodyBytes),
		httpcache.WithCaseSensitivePaths(caseSensitivePaths),
	)

	log.Printf("proxying http://%s -> %s", listen, target)
	log.Fatal(http.ListenAndServe(listen, mw))
}

func newStore() (httpcache.Storage, error) {
	if dir == "" && !useDisk {
		return httpcache.NewMemoryStorage(0), nil
	}
	if dir == "" {
		dir = "./cachedata"
	}
	log.Printf("storing cached responses in %s", dir)
	return disk.New(dir)
}
