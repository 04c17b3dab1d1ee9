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

package stage

import (
	"github.com/pkg/errors"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/errs"
)

// collectionRef is what a scan remembers about its collection across yields:
// the identity it resolves the collection by and the name and catalog epoch
// it resolved it under.
type collectionRef struct {
	uuid  scanexec.CollectionUUID
	name  string
	epoch uint64
}

// acquireCollection takes the collection's locks and resolves it by uuid.
func acquireCollection(opCtx *scanexec.OperationContext, uuid scanexec.CollectionUUID,
	lock scanexec.LockAcquisitionCallback) (*scanexec.Collection, collectionRef, error) {
	ref := collectionRef{uuid: uuid}
	if lock != nil {
		if err := lock(opCtx, uuid); err != nil {
			return nil, ref, err
		}
	}
	db := opCtx.DB()
	ref.epoch = db.CatalogEpoch()
	coll, ok := db.LookupCollectionByUUID(uuid)
	if !ok {
		return nil, ref, errors.Wrapf(errs.ErrNamespaceNotFound, "collection %d does not exist", uuid)
	}
	ref.name = coll.Name()
	return coll, ref, nil
}

// restoreCollection re-resolves ref after a yield. It fails with
// errs.ErrQueryPlanKilled when the collection was dropped or renamed, or the
// catalog was reloaded, in the meantime.
func restoreCollection(opCtx *scanexec.OperationContext, ref collectionRef,
	lock scanexec.LockAcquisitionCallback) (*scanexec.Collection, error) {
	if lock != nil {
		if err := lock(opCtx, ref.uuid); err != nil {
			return nil, err
		}
	}
	db := opCtx.DB()
	coll, ok := db.LookupCollectionByUUID(ref.uuid)
	if !ok {
		return nil, planKilled(opCtx, "collection dropped", "collection dropped. UUID %d", ref.uuid)
	}
	if name := coll.Name(); name != ref.name {
		return nil, planKilled(opCtx, "collection renamed", "collection renamed from '%s' to '%s'. UUID %d",
			ref.name, name, ref.uuid)
	}
	if db.CatalogEpoch() != ref.epoch {
		return nil, planKilled(opCtx, "catalog reopened", "the catalog was closed and reopened")
	}
	return coll, nil
}

func planKilled(opCtx *scanexec.OperationContext, reason, format string, args ...interface{}) error {
	opCtx.DB().MetricsSink().ObservePlanKilled(reason)
	return errors.Wrapf(errs.ErrQueryPlanKilled, format, args...)
}
