// Package testutil provides testing utilities for tgin.
//
// This package is intended for internal testing only and should not be
// imported by external packages.
//
// # Mock upstream server
//
// MockTelegramServer provides a mock upstream bot API server for testing
// update sources:
//
//	server := testutil.NewMockServer(t)
//	server.OnMethod("GET", "/bot123:ABC/getUpdates", func(w http.ResponseWriter, r *http.Request) {
//	    testutil.ReplyEmptyUpdates(w)
//	})
//	// Use server.BaseURL() as the API base URL
//
// # Request capture
//
// All requests are automatically captured and can be inspected:
//
//	cap := server.LastCapture()
//	cap.AssertMethod(t, "GET")
//	cap.AssertQuery(t, "offset", "5")
//
// # Fake sleeper
//
// FakeSleeper records sleep calls without actually sleeping:
//
//	sleeper := &testutil.FakeSleeper{}
//	_ = sleeper.Sleep(ctx, 2*time.Second)
//	assert.Equal(t, 2*time.Second, sleeper.LastCall())
package testutil
