// Package shared holds helpers used by more than one package and owned by
// none of them.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - NewTestLogger, a slog logger whose records can be asserted on
//   - WriteWorkbook and WorkbookBytes, which build sensor exports with excelize
//   - NewRecord and ExportName, metrics record fixtures
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteWorkbook(t, t.TempDir(), testutil.ExportName(2024, 3, 5), testutil.ExportRows())
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
