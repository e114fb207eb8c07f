package helpers

// TestContext is satisfied by both *testing.T and *scenario.T, so that assertion helpers
// work in unit tests and in harness scenarios alike.
type TestContext interface {
	Errorf(msgFormat string, msgArgs ...interface{})
	FailNow()
	Helper()
}
