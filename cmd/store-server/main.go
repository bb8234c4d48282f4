package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nucleus/store-core/pkg/community"
)

// detectRequest/detectResponse are the JSON wire shapes for the
// DetectCommunities endpoint. Real generated protobuf stubs aren't
// available in this environment, so the service is exposed over a plain
// JSON facade instead; CommunityService itself already speaks in the
// placeholder proto-shaped structs defined in service.go, so wiring a
// real gRPC ServiceDesc later is a matter of codec, not redesign.
type detectRequest struct {
	TenantID  string                   `json:"tenantId"`
	ProjectID string                   `json:"projectId"`
	DatasetID string                   `json:"datasetId"`
	Config    community.LeidenConfig   `json:"config"`
	Nodes     []community.Node         `json:"nodes"`
	Edges     []community.Edge         `json:"edges"`
}

type communityServer struct {
	svc *community.CommunityService
}

func (s *communityServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}
	result, err := s.svc.DetectCommunities(r.Context(), req.TenantID, req.ProjectID, req.DatasetID, req.Config, req.Nodes, req.Edges)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	proto := community.DetectionResultToProto(result)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(proto)
}

func (s *communityServer) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	communities, total, err := s.svc.ListCommunities(r.Context(), community.CommunityFilter{
		TenantID: tenantID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total":       total,
		"communities": communities,
	})
}

func (s *communityServer) handleGet(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")
	id := strings.TrimPrefix(r.URL.Path, "/communities/")
	c, err := s.svc.GetCommunity(r.Context(), tenantID, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(community.CommunityToProto(*c))
}

func main() {
	httpAddr := getenvDefault("COMMUNITY_HTTP_ADDR", ":8099")
	grpcAddr := getenvDefault("COMMUNITY_GRPC_ADDR", ":9099")

	dsn := getenvDefault("COMMUNITY_DATABASE_URL", "")
	store, err := community.NewPostgresCommunityStore(dsn)
	if err != nil {
		log.Fatalf("community store init: %v", err)
	}
	defer store.Close()

	svc := community.NewCommunityService(store).WithLabeler(community.NewKeywordLabeler())
	server := &communityServer{svc: svc}

	mux := http.NewServeMux()
	mux.HandleFunc("/communities/detect", server.handleDetect)
	mux.HandleFunc("/communities", server.handleList)
	mux.HandleFunc("/communities/", server.handleGet)

	go func() {
		log.Printf("community-core HTTP listening on %s", httpAddr)
		if err := http.ListenAndServe(httpAddr, mux); err != nil {
			log.Fatalf("http serve: %v", err)
		}
	}()

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	log.Printf("community-core gRPC health listening on %s", grpcAddr)
	if err := grpcServer.Serve(lis); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
