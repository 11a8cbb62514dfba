// Package models provides the analyst-facing containers: a piece container
// that runs indexer chains against one score and memoizes every intermediate
// result, and a collection container that fans out over many pieces, groups
// them by metadata, and reduces each group with an aggregation stage. All
// container work executes through the shared dispatch controller, so nested
// container calls never exceed the process worker budget.
package models
