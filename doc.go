// Copyright 2026 The nutsdb Author. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package scanexec is an embedded document store together with the physical
scan operators of a query engine that runs on top of it.

The store keeps collections of BSON records in copy-on-write B-trees. Every
collection has a record store ordered by record id and any number of sorted
indexes whose keys are encoded with package keystring. One collection may be
declared an oplog: its record ids are derived from the "ts" timestamp of each
entry, so that natural order is timestamp order.

Usage

All writes happen inside a Tx. Readers never take a transaction: they create

an OperationContext, which captures point-in-time snapshots of the trees it
touches and holds the collection locks it acquires until it yields.

The stage package builds executable plans over these primitives and the
stagebuilder package assembles collection scans from a CollectionScanNode.
*/
package scanexec
