// Command bench drives a running server with timed load scenarios and prints
// latency and throughput figures. Every request dials a fresh connection, the
// way short-lived clients would.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"lukas/map8x32/internal/client"
	"lukas/map8x32/internal/config"
)

type scenario struct {
	concurrent int
	duration   time.Duration
}

type results struct {
	totalRequests      uint64
	successfulRequests uint64
	failedRequests     uint64
	avgResponseTime    time.Duration
	minResponseTime    time.Duration
	maxResponseTime    time.Duration
	p95ResponseTime    time.Duration
	requestsPerSecond  float64
	duration           time.Duration
}

type workerResult struct {
	successful    uint64
	failed        uint64
	responseTimes []time.Duration
}

func main() {
	socketPath := flag.String("socket", config.DefaultSocketPath, "unix socket path of the server")
	users := flag.Int("users", 0, "run a single scenario with this many concurrent users instead of the default table")
	duration := flag.Duration("duration", 0, "duration of the single scenario (requires -users)")
	flag.Parse()

	scenarios := []scenario{
		{10, 10 * time.Second},
		{50, 20 * time.Second},
		{100, 15 * time.Second},
		{50, 10 * time.Second},
	}
	if *users > 0 {
		d := *duration
		if d <= 0 {
			d = 10 * time.Second
		}
		scenarios = []scenario{{*users, d}}
	}

	for _, sc := range scenarios {
		fmt.Printf("Running test with %d concurrent users for %v\n", sc.concurrent, sc.duration)
		res := runLoadTest(*socketPath, sc.concurrent, sc.duration)
		printResults(&res)
		fmt.Println(strings.Repeat("=", 50))

		time.Sleep(2 * time.Second)
	}
}

func runLoadTest(socketPath string, maxConcurrent int, duration time.Duration) results {
	fmt.Println("Starting benchmark test...")
	fmt.Printf("Socket: %s\n", socketPath)
	fmt.Printf("Max concurrent users: %d\n", maxConcurrent)
	fmt.Printf("Duration: %v\n", duration)
	fmt.Println()

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	start := time.Now()

	g, ctx := errgroup.WithContext(context.Background())
	workerResults := make([]workerResult, maxConcurrent)
	for i := 0; i < maxConcurrent; i++ {
		out := &workerResults[i]
		g.Go(func() error {
			return runWorker(ctx, socketPath, sem, duration, out)
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "worker failed: %v\n", err)
	}

	actualDuration := time.Since(start)

	var totalSuccessful, totalFailed uint64
	var allResponseTimes []time.Duration
	for i := range workerResults {
		totalSuccessful += workerResults[i].successful
		totalFailed += workerResults[i].failed
		allResponseTimes = append(allResponseTimes, workerResults[i].responseTimes...)
	}

	sort.Slice(allResponseTimes, func(i, j int) bool {
		return allResponseTimes[i] < allResponseTimes[j]
	})

	res := results{
		totalRequests:      totalSuccessful + totalFailed,
		successfulRequests: totalSuccessful,
		failedRequests:     totalFailed,
		duration:           actualDuration,
	}
	if len(allResponseTimes) > 0 {
		var sum time.Duration
		for _, d := range allResponseTimes {
			sum += d
		}
		res.avgResponseTime = sum / time.Duration(len(allResponseTimes))
		res.minResponseTime = allResponseTimes[0]
		res.maxResponseTime = allResponseTimes[len(allResponseTimes)-1]
		idx := int(float64(len(allResponseTimes)) * 0.95)
		if idx > 0 {
			idx--
		}
		res.p95ResponseTime = allResponseTimes[idx]
	}
	if actualDuration > 0 {
		res.requestsPerSecond = float64(res.totalRequests) / actualDuration.Seconds()
	}
	return res
}

// runWorker issues set-then-get pairs until the scenario deadline, pacing
// itself and holding a semaphore permit for each in-flight pair.
func runWorker(ctx context.Context, socketPath string, sem *semaphore.Weighted, duration time.Duration, out *workerResult) error {
	start := time.Now()
	for time.Since(start) < duration {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		key := uint8(rand.Intn(128))
		value := rand.Uint32()
		elapsed, ok := setThenGet(socketPath, key, value)
		sem.Release(1)

		out.responseTimes = append(out.responseTimes, elapsed)
		if ok {
			out.successful++
		} else {
			out.failed++
		}

		time.Sleep(time.Millisecond)
	}
	return nil
}

// setThenGet writes one value and reads it back, counting the pair as one
// request. Success requires the written value to appear in the read.
func setThenGet(socketPath string, key uint8, value uint32) (time.Duration, bool) {
	start := time.Now()

	if !sendSet(socketPath, key, value) {
		return time.Since(start), false
	}
	values, ok := sendGet(socketPath, key)
	if !ok {
		return time.Since(start), false
	}

	found := false
	for _, v := range values {
		if v == value {
			found = true
			break
		}
	}
	return time.Since(start), found
}

func sendSet(socketPath string, key uint8, value uint32) bool {
	c, err := client.Dial(socketPath)
	if err != nil {
		return false
	}
	defer c.Close()
	return c.Set(key, value) == nil
}

func sendGet(socketPath string, key uint8) ([]uint32, bool) {
	c, err := client.Dial(socketPath)
	if err != nil {
		return nil, false
	}
	defer c.Close()
	values, err := c.Get(key)
	if err != nil {
		return nil, false
	}
	return values, true
}

func printResults(res *results) {
	fmt.Println("Benchmark Results:")
	fmt.Println("==================")
	fmt.Printf("Total requests: %d\n", res.totalRequests)
	fmt.Printf("Successful requests: %d\n", res.successfulRequests)
	fmt.Printf("Failed requests: %d\n", res.failedRequests)
	if res.totalRequests > 0 {
		fmt.Printf("Success rate: %.2f%%\n", float64(res.successfulRequests)/float64(res.totalRequests)*100)
	}
	fmt.Printf("Requests per second: %.2f\n", res.requestsPerSecond)
	fmt.Printf("Duration: %v\n", res.duration)
	fmt.Println()
	fmt.Println("Response Times:")
	fmt.Printf("  Average: %v\n", res.avgResponseTime)
	fmt.Printf("  Minimum: %v\n", res.minResponseTime)
	fmt.Printf("  Maximum: %v\n", res.maxResponseTime)
	fmt.Printf("  95th percentile: %v\n", res.p95ResponseTime)
}
