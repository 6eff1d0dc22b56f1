// Package progression holds the pure rules that turn a task completion into
// user progress: the daily streak, the level derived from points, and the
// dashboard progress bucket.
//
// Nothing here touches storage or the clock. Callers pass the evaluation
// time explicitly; calendar days are those of now's location.
package progression
