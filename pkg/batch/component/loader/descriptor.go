// Package loader implements the per-dataset load pipeline: the staging collection is dropped,
// the schema and CSV file are fetched, rows are bulk inserted in chunks, indexes are built
// and the staging collection replaces the production one in a single rename.
package loader

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/source"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// IndexSpec is one secondary index on a dataset collection. Keys are ascending.
type IndexSpec struct {
	Name   string   `validate:"required"`
	Keys   []string `validate:"required,min=1,dive,required"`
	Unique bool
}

// Descriptor describes one dataset and how it is loaded.
type Descriptor struct {
	source.Dataset

	// BusinessKey is the column recorded as a creation detail for every loaded row.
	BusinessKey string      `validate:"required"`
	Indexes     []IndexSpec `validate:"dive"`
}

// StagingCollection returns the collection rows are loaded into before the swap.
func (d Descriptor) StagingCollection() string {
	return "TMP-" + d.Collection
}

const (
	ridPrefix   = "ri.foundry.main.dataset."
	dataSetsDir = "/maersk/advanced_analytics/spotlanes/data_sets/"
	sourcesDir  = "/maersk/advanced_analytics/data/datasources/spotlanes/"
)

// DefaultDescriptors returns the built-in dataset table in load order.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{
			Dataset: source.Dataset{
				Name:       "operational_routes",
				Collection: "operationalRoutes",
				RID:        ridPrefix + "4ef1e435-cb2a-450e-ba18-e42263057379",
				Path:       dataSetsDir + "operational_routes",
			},
			BusinessKey: "SHIPMENT_VERSION_INSTANCE_ID",
			Indexes: []IndexSpec{
				{Name: "shipment_version_instance_id_1", Keys: []string{"SHIPMENT_VERSION_INSTANCE_ID"}},
			},
		},
		{
			Dataset: source.Dataset{
				Name:       "equipment_cargo",
				Collection: "equipmentCargo",
				RID:        ridPrefix + "0fc9d55a-142e-4385-883d-db1c1a5ef2b4",
				Path:       dataSetsDir + "equipment_cargo",
			},
			BusinessKey: "EQUIPMENT_ASSIGNMENT_INSTANCE_ID",
			Indexes: []IndexSpec{
				{Name: "fk_shipment_version_1", Keys: []string{"FK_SHIPMENT_VERSION"}},
				{Name: "equipment_assignment_instance_id_1", Keys: []string{"EQUIPMENT_ASSIGNMENT_INSTANCE_ID"}},
			},
		},
		{
			Dataset: source.Dataset{
				Name:       "cargo_conditioning",
				Collection: "cargoConditioning",
				RID:        ridPrefix + "9ba18bdb-a5df-4283-afa1-d0febb86bcda",
				Path:       sourcesDir + "cargo_conditioning_limit",
			},
			BusinessKey: "CARGO_CONDITIONING_INSTANCE_ID",
			Indexes: []IndexSpec{
				{Name: "cargo_conditioning_instance_id_1", Keys: []string{"CARGO_CONDITIONING_INSTANCE_ID"}},
			},
		},
		{
			Dataset: source.Dataset{
				Name:       "haulage_info",
				Collection: "haulageInfo",
				RID:        ridPrefix + "49252e4a-2697-436a-876f-cf73c28d90b9",
				Path:       dataSetsDir + "haulage_info",
			},
			BusinessKey: "FK_SHIPMENT_VERSION_IMP_EXP",
			Indexes: []IndexSpec{
				{Name: "fk_shipment_version_imp_exp_1_direction_1", Keys: []string{"FK_SHIPMENT_VERSION_IMP_EXP", "DIRECTION"}},
			},
		},
		{
			Dataset: source.Dataset{
				Name:       "haulage_equipment",
				Collection: "haulageEquipments",
				RID:        ridPrefix + "7fe2b4bc-c60f-4e05-9b36-8f7cd602d5ab",
				Path:       sourcesDir + "haulage_equipment",
			},
			BusinessKey: "HAULAGE_ARRANGEMENT_INSTANCE_ID",
			Indexes: []IndexSpec{
				{Name: "HAULAGE_ARRANGEMENT_INSTANCE_ID", Keys: []string{"HAULAGE_ARRANGEMENT_INSTANCE_ID"}, Unique: true},
			},
		},
		{
			Dataset: source.Dataset{
				Name:       "global_bookings_truckinglegs",
				Collection: "truckingBookings",
				RID:        ridPrefix + "f6b1f806-8539-49d1-97b6-e262bae8a149",
				Path:       dataSetsDir + "global_bookings_truckinglegs",
			},
			BusinessKey: "BOOKING_NUMBER",
			Indexes: []IndexSpec{
				{Name: "endLoc_1_depTimeExp_1", Keys: []string{"END_LOC", "DEP_TIME_EXP"}},
				{Name: "startLoc_1_depTimeExp_1", Keys: []string{"START_LOC", "DEP_TIME_EXP"}},
				{Name: "booking_number_1", Keys: []string{"BOOKING_NUMBER"}},
			},
		},
	}
}

// DescriptorsFromConfig returns the configured datasets, or the built-in table when none are
// configured. Every descriptor is validated and names must be unique.
func DescriptorsFromConfig(cfg *config.Config) ([]Descriptor, error) {
	const op = "loader.DescriptorsFromConfig"

	var descriptors []Descriptor
	if len(cfg.Surfin.Datasets) == 0 {
		descriptors = DefaultDescriptors()
	} else {
		for _, dc := range cfg.Surfin.Datasets {
			d := Descriptor{
				Dataset: source.Dataset{
					Name:       dc.Name,
					Collection: dc.Collection,
					RID:        dc.RID,
					Path:       dc.Path,
					SchemaFile: dc.SchemaFile,
					DataFile:   dc.DataFile,
				},
				BusinessKey: dc.BusinessKey,
			}
			for _, ic := range dc.Indexes {
				d.Indexes = append(d.Indexes, IndexSpec{Name: ic.Name, Keys: ic.Keys, Unique: ic.Unique})
			}
			descriptors = append(descriptors, d)
		}
	}

	validate := validator.New()
	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if err := validate.Struct(d); err != nil {
			return nil, exception.NewValidationError(op, fmt.Sprintf("invalid dataset '%s': %v", d.Name, err))
		}
		if seen[d.Name] {
			return nil, exception.NewValidationError(op, fmt.Sprintf("dataset '%s' is configured more than once", d.Name))
		}
		seen[d.Name] = true
	}
	return descriptors, nil
}
