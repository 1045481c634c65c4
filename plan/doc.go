// Package plan models physical plans: immutable trees of operator nodes, each of which
// declares its output Schema without reading data. A Plan freezes such a tree, assigns
// every node an id and cuts it into Stages at its shuffle boundaries.
package plan
