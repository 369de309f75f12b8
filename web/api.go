package web

import (
	"encoding/json"
	"geoidx/common"
	"geoidx/index"
	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"net/http"
	"os"
	"strconv"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RankedObjectResponse struct {
	ID     uint64  `json:"id"`
	Weight float64 `json:"weight"`
}

// StartServer loads the given index file and serves range and nearest-object queries over HTTP.
func StartServer(port string, indexFile string) {
	router := initRouter(indexFile)
	sigolo.Infof("Start server on port %s", port)
	err := http.ListenAndServe(":"+port, router)
	sigolo.FatalCheck(err)
}

func initRouter(indexFile string) *mux.Router {
	data, err := os.ReadFile(indexFile)
	sigolo.FatalCheck(err)
	geoObjectsIndex, err := index.LoadGeoObjectsIndex(data)
	sigolo.FatalCheck(err)

	router := mux.NewRouter()
	router.HandleFunc("/objects", func(writer http.ResponseWriter, request *http.Request) {
		rect, err := common.ParseBbox(request.URL.Query().Get("bbox"))
		if err != nil {
			writeErrorResponse(writer, http.StatusBadRequest, "Invalid 'bbox' parameter", err)
			return
		}

		ids := []uint64{}
		geoObjectsIndex.ForEachInRect(func(id index.GeoObjectID) {
			ids = append(ids, uint64(id))
		}, rect)

		sigolo.Debugf("Found %d objects in bbox %v", len(ids), rect)
		writeJsonResponse(writer, ids)
	}).Methods(http.MethodGet)

	router.HandleFunc("/objects/closest", func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		x, errX := strconv.ParseFloat(query.Get("x"), 64)
		y, errY := strconv.ParseFloat(query.Get("y"), 64)
		maxDistance, errDistance := strconv.ParseFloat(query.Get("maxDistance"), 64)
		if errX != nil || errY != nil || errDistance != nil {
			writeErrorResponse(writer, http.StatusBadRequest, "Parameters 'x', 'y' and 'maxDistance' must be numbers", nil)
			return
		}
		topSize := 10
		if query.Has("topSize") {
			var err error
			topSize, err = strconv.Atoi(query.Get("topSize"))
			if err != nil {
				writeErrorResponse(writer, http.StatusBadRequest, "Parameter 'topSize' must be an integer", err)
				return
			}
		}

		rankedObjects := []RankedObjectResponse{}
		geoObjectsIndex.ForClosestToPoint(func(id index.GeoObjectID, weight float64) {
			rankedObjects = append(rankedObjects, RankedObjectResponse{ID: uint64(id), Weight: weight})
		}, orb.Point{x, y}, maxDistance, topSize)

		sigolo.Debugf("Found %d objects close to (%f, %f)", len(rankedObjects), x, y)
		writeJsonResponse(writer, rankedObjects)
	}).Methods(http.MethodGet)

	return router
}

func writeJsonResponse(writer http.ResponseWriter, response any) {
	writer.Header().Set("Content-Type", "application/json")

	responseBytes, err := json.Marshal(response)
	if err != nil {
		sigolo.Errorf("Error marshalling response object: %+v", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}

	_, err = writer.Write(responseBytes)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}

func writeErrorResponse(writer http.ResponseWriter, status int, message string, err error) {
	sigolo.Errorf("%s: %+v", message, err)
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	errorResponseBytes, err := json.Marshal(ErrorResponse{Error: message})
	if err != nil {
		sigolo.Errorf("Error creating and marshalling error response object: %+v", err)
		return
	}

	_, err = writer.Write(errorResponseBytes)
	if err != nil {
		sigolo.Errorf("Error writing error response: %+v", err)
	}
}
