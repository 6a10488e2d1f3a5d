// Package empmos is an unofficial Go client for the Moscow city unified
// mobile platform (emp.mos.ru), the API behind the "Госуслуги Москвы" app.
//
// # Installation
//
//	go get github.com/emp-mos/empmos-go
//
// # Quick Start
//
// Log in, read the water meters of the first flat and log out:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"os"
//		"time"
//
//		empmos "github.com/emp-mos/empmos-go"
//	)
//
//	func main() {
//		client, err := empmos.NewClient(
//			os.Getenv("EMP_TOKEN"),
//			os.Getenv("EMP_GUID"),
//			"3.8.1", // device app version
//			6,       // timeout in seconds (0 = default 3s)
//		)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer client.Close()
//
//		if _, err := client.Login(os.Getenv("EMP_LOGIN"), os.Getenv("EMP_PASSWORD")); err != nil {
//			log.Fatal(err)
//		}
//		defer func() {
//			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//			defer cancel()
//			if _, err := client.LogoutWithContext(ctx); err != nil {
//				log.Printf("logout: %v", err)
//			}
//		}()
//
//		flats, err := client.Flats()
//		if err != nil || len(flats) == 0 {
//			log.Fatal("no flats: ", err)
//		}
//		counters, err := client.WaterCounters(flats[0].ID())
//		if err != nil {
//			log.Fatal(err)
//		}
//		for _, c := range counters.Counters() {
//			if v, ok, err := c.LastValue(); err == nil && ok {
//				fmt.Printf("%s %s: %.2f\n", c.Type().Abbr(), c.Num(), v)
//			}
//		}
//	}
//
// # Errors
//
// Every response is wrapped in an envelope with an errorCode. Code 401 yields
// *AuthenticationError; code 3454 (meter submission rejected) yields one of
// *AlreadySubmittedError, *ImplausibleValueError, *DecreasingValueError or
// *CounterNotCalibratedError, told apart by the service's message text; any
// other code yields *ServerError. Use errors.As to match them. Calls made
// without an active session fail with ErrNoSession before any request is sent.
// Nothing is retried.
//
// # Several accounts
//
// A Registry builds one Client per key from shared parameters, and
// NewRegistryFromFile reads them from a YAML account file.
//
// # Logging
//
// With Debug set, requests and responses are logged through Config.Logger
// (a log.Logger on stdout by default) with tokens and session ids redacted.
// SlogLogger routes them to a *slog.Logger.
//
// # Environment Variables
//
//   - EMP_TOKEN: application token (required)
//   - EMP_GUID: device identifier (a random UUID is used when unset)
//   - EMP_APP_VERSION: mobile app version reported to the service
//   - EMP_BASE_URL: API base URL (defaults to https://emp.mos.ru)
//   - EMP_TIMEOUT: request timeout (defaults to 3s)
//   - EMP_TLS_VERIFY: set to false to skip certificate verification
//   - EMP_DEBUG: log requests and responses
package empmos
