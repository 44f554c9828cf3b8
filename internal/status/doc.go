// Package status reconciles one student's rows across every course and
// snapshot into a single status: membership in each course's latest
// extraction, the latest verdict per course, enrollment conflicts and the
// resulting situation.
//
// Membership is judged against the latest extraction date of the course over
// the whole snapshot, not over the student's own rows, so a student missing
// from the newest pull is reported as no longer enrolled.
package status
