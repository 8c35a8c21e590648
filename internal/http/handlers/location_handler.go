package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

type LocationHandler struct {
	locations *service.LocationService
}

func NewLocationHandler(locations *service.LocationService) *LocationHandler {
	return &LocationHandler{locations: locations}
}

// UpdateLocation PATCH /location
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req service.LocationInput
	if !common.BindJSON(c, &req) {
		return
	}

	user, err := h.locations.UpdateLocation(c.Request.Context(), actor.ID, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"location": user.Location})
}

// MyLocation GET /location/me
func (h *LocationHandler) MyLocation(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	loc, err := h.locations.GetMyLocation(c.Request.Context(), actor.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"location": loc})
}

// NearbyFarmers GET /location/nearby/farmers
func (h *LocationHandler) NearbyFarmers(c *gin.Context) {
	h.nearbyUsers(c, models.RoleFarmer)
}

// NearbyBuyers GET /location/nearby/buyers
func (h *LocationHandler) NearbyBuyers(c *gin.Context) {
	h.nearbyUsers(c, models.RoleBuyer)
}

func (h *LocationHandler) nearbyUsers(c *gin.Context, role string) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	q, err := nearbyQuery(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	result, err := h.locations.NearbyUsers(c.Request.Context(), actor.ID, role, q)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, result)
}

// NearbyProducts GET /location/nearby/products
func (h *LocationHandler) NearbyProducts(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	q, err := nearbyQuery(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	q.Category = strings.TrimSpace(c.Query("category"))

	result, err := h.locations.NearbyProducts(c.Request.Context(), actor.ID, q)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, result)
}

func nearbyQuery(c *gin.Context) (service.NearbyQuery, error) {
	lat, err := common.ParseFloatQuery(c, "lat")
	if err != nil {
		return service.NearbyQuery{}, err
	}
	lng, err := common.ParseFloatQuery(c, "lng")
	if err != nil {
		return service.NearbyQuery{}, err
	}
	radius, err := common.ParseFloatQuery(c, "radiusKm")
	if err != nil {
		return service.NearbyQuery{}, err
	}

	q := service.NearbyQuery{Lat: lat, Lng: lng, Limit: common.ParseIntQuery(c, "limit", 0)}
	if radius != nil {
		q.RadiusKm = *radius
	}
	return q, nil
}
