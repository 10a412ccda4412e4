package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"runtime/pprof"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lintang-b-s/roadmatch/pkg/kvstore"
	"github.com/lintang-b-s/roadmatch/pkg/matcher"
	"github.com/lintang-b-s/roadmatch/pkg/provider/osmroad"
	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
	"github.com/lintang-b-s/roadmatch/pkg/router"
	"github.com/lintang-b-s/roadmatch/pkg/server"
	"github.com/lintang-b-s/roadmatch/pkg/spatialindex"
)

// Flag set mirrors cmd/mapmatch/main.go and cmd/engine/main.go: listen
// address, OSM source file, rate-limit toggle and a one-shot CPU profile.
var (
	listenAddr   = flag.String("listenaddr", ":5050", "server listen address")
	mapFile      = flag.String("f", "map.osm.pbf", "openstreetmap pbf file to build the road network from")
	storeDir     = flag.String("store", "./roadmatch-road.db", "pebble directory caching the parsed road network")
	snapshotDir  = flag.String("snapshots", "./roadmatch-snapshots.db", "badger directory for matched-state snapshots")
	cpuprofile   = flag.String("cpuprofile", "", "write cpu profile to file")
	useRateLimit = flag.Bool("ratelimit", false, "use rate limit")
	teacherTuned = flag.Bool("teacher-tuning", false, "use the teacher's tuned sigmaZ/beta constants instead of the generic defaults")
)

//	@title			roadmatch API
//	@version		1.0
//	@description	online HMM road map-matching engine

//	@license.name	GNU Affero General Public License v3.0
//	@license.url	https://www.gnu.org/licenses/gpl-3.0.en.html

// @host		localhost:5050
// @BasePath	/
// @schemes	http
func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	roads := loadOrIngestRoadNetwork(*mapFile, *storeDir)
	log.Printf("road network ready: %d base roads, %d directed roads", roads.NumBaseRoads(), roads.NumRoads())

	index, err := spatialindex.New(roads)
	if err != nil {
		log.Fatal(err)
	}

	routes := router.New(roads)

	config := matcher.NewConfig()
	if *teacherTuned {
		config = matcher.TeacherPreset()
	}

	snapshots, err := kvstore.Open(*snapshotDir)
	if err != nil {
		log.Fatal(err)
	}
	defer snapshots.Close()

	svc := server.NewMatchService(roads, index, routes, config)

	reg := prometheus.NewRegistry()
	r := server.NewRouter(svc, server.RouterConfig{
		UseRateLimit: *useRateLimit,
		Metrics:      reg,
		ExternalURL:  "http://localhost" + *listenAddr,
	})

	log.Printf("map matcher ready!!!")
	log.Printf("server started at %s\n", *listenAddr)
	log.Fatal(http.ListenAndServe(*listenAddr, r))
}

// loadOrIngestRoadNetwork loads a cached road network from storeDir if one
// exists, otherwise ingests mapFile and persists the result, mirroring the
// teacher's ch.LoadGraph(bool)-then-build-if-absent shape in
// cmd/mapmatch/main.go and cmd/engine/main.go.
func loadOrIngestRoadNetwork(mapFile, storeDir string) *roadnetwork.RoadMap {
	if roads, store, err := roadnetwork.Load(storeDir); err == nil {
		store.Close()
		if roads.NumBaseRoads() > 0 {
			return roads
		}
	}

	log.Printf("no cached road network at %s, ingesting %s", storeDir, mapFile)
	roads, err := osmroad.LoadPBF(mapFile)
	if err != nil {
		log.Fatal(err)
	}

	store, err := roadnetwork.OpenStore(storeDir)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if err := store.SaveAll(roads); err != nil {
		log.Fatal(err)
	}

	return roads
}
