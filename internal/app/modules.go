package app

import (
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/modules/aggregate"
	"github.com/specialistvlad/stagegrid/modules/check_invariants"
	"github.com/specialistvlad/stagegrid/modules/check_versions"
	"github.com/specialistvlad/stagegrid/modules/export_viewer"
	"github.com/specialistvlad/stagegrid/modules/parse_csv"
	"github.com/specialistvlad/stagegrid/modules/print"
)

// coreModules is the definitive list of all modules that are compiled into
// the stagegrid binary.
var coreModules = []registry.Module{
	&parse_csv.Module{},
	&check_versions.Module{},
	&aggregate.Module{},
	&check_invariants.Module{},
	&export_viewer.Module{},
	&print.Module{},
}
