// Package sftkit provides the conversation data model for supervised fine-tuning datasets:
// roles, messages, raw records and normalized examples, plus the Normalizer that maps
// a raw record onto the {"messages": [...]} shape and enforces its structural contract.
//
// Loading lives in package loader, the adapter that builds train/validation bundles in
// package dataset, and multi-node logging setup in package nodelog.
package sftkit
