// Package util provides the shared HTTP clients and the bounded worker pool
package util

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

var (
	sharedClient     *http.Client
	sharedClientOnce sync.Once

	// downloadClient has no overall timeout so large video bodies can
	// stream to completion; the transport still bounds dial/TLS time.
	downloadClient     *http.Client
	downloadClientOnce sync.Once
)

// httpClientConfig holds configuration for creating HTTP clients
type httpClientConfig struct {
	timeout             time.Duration
	maxIdleConns        int
	maxIdleConnsPerHost int
	maxConnsPerHost     int
	idleConnTimeout     time.Duration
	tlsHandshakeTimeout time.Duration
	expectContinue      time.Duration
	keepAlive           time.Duration
	dialTimeout         time.Duration
}

// defaultConfig returns the configuration used for page and API requests
func defaultConfig() httpClientConfig {
	return httpClientConfig{
		timeout:             30 * time.Second,
		maxIdleConns:        100,
		maxIdleConnsPerHost: 16,
		maxConnsPerHost:     32,
		idleConnTimeout:     120 * time.Second,
		tlsHandshakeTimeout: 5 * time.Second,
		expectContinue:      1 * time.Second,
		keepAlive:           30 * time.Second,
		dialTimeout:         5 * time.Second,
	}
}

// createTransport creates an HTTP transport with the given config
func createTransport(cfg httpClientConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.dialTimeout,
			KeepAlive: cfg.keepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.maxIdleConns,
		MaxIdleConnsPerHost:   cfg.maxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.maxConnsPerHost,
		IdleConnTimeout:       cfg.idleConnTimeout,
		TLSHandshakeTimeout:   cfg.tlsHandshakeTimeout,
		ExpectContinueTimeout: cfg.expectContinue,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// GetSharedClient returns the shared HTTP client with connection pooling.
// Use this for page fetches and API calls.
func GetSharedClient() *http.Client {
	sharedClientOnce.Do(func() {
		cfg := defaultConfig()
		sharedClient = &http.Client{
			Transport: createTransport(cfg),
			Timeout:   cfg.timeout,
		}
	})
	return sharedClient
}

// GetDownloadClient returns the HTTP client used for streaming video
// bodies. It carries no overall timeout.
func GetDownloadClient() *http.Client {
	downloadClientOnce.Do(func() {
		cfg := defaultConfig()
		cfg.idleConnTimeout = 10 * time.Minute
		downloadClient = &http.Client{
			Transport: createTransport(cfg),
			Timeout:   0,
		}
	})
	return downloadClient
}

// WorkerPool provides a safe way to run multiple goroutines with a limit
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
}

// NewWorkerPool creates a new worker pool with the specified max concurrent workers
func NewWorkerPool(maxWorkers int) *WorkerPool {
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Submit submits a task to the worker pool.
// It will block if all workers are busy until one becomes available.
func (wp *WorkerPool) Submit(task func()) {
	wp.semaphore <- struct{}{} // Acquire
	go func() {
		defer func() { <-wp.semaphore }() // Release
		task()
	}()
}

// Wait drains the pool, returning once all submitted tasks have finished
func (wp *WorkerPool) Wait() {
	for i := 0; i < wp.maxWorkers; i++ {
		wp.semaphore <- struct{}{}
	}
	for i := 0; i < wp.maxWorkers; i++ {
		<-wp.semaphore
	}
}
