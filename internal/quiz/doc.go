// Package quiz scores podcast quizzes.
//
// An Attempt tracks the selected choice per question, navigation and the
// server verdicts. Submit saves every answer concurrently and scores the
// attempt as round(correct/total*100). A failed save aborts the submission
// without undoing the saves that succeeded.
package quiz
