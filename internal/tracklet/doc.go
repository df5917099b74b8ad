// Package tracklet groups per-frame skeleton detections into tracklets.
//
// Responsibilities: the skeleton feature model, the masked partial
// distance between two skeletons, the greedy chaining clusterer and the
// occurrence filter applied before export.
// Key types: Skeleton, Features, Params, Result, Tracklet.
//
// The clusterer is a pure computation: no I/O, no logging, no global
// state. Archive reading lives in internal/pose, persistence in
// internal/export and internal/store, plots in internal/report.
package tracklet
