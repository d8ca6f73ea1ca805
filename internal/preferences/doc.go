// Package preferences validates and persists the two topic rankings that
// steer classification: a general ranking over a fixed catalog of ten
// topics and a specific ranking over ten finer-grained topics.
package preferences
