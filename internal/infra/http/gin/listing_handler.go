package ginserver

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentboard/internal/app/dto"
	"rentboard/internal/app/services/catalog"
	domainlistings "rentboard/internal/domain/listings"
	domainuser "rentboard/internal/domain/user"
)

const (
	maxListingImageSizeBytes int64 = 10 * 1024 * 1024
	maxImagesPerUpload             = 10
)

type ListingHandler struct {
	Service *catalog.Service
	Logger  *slog.Logger
}

type listingRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PropertyType string   `json:"property_type"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	PriceCents   int64    `json:"price_cents"`
	Amenities    []string `json:"amenities"`
}

type listingUpdateRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	PropertyType *string  `json:"property_type"`
	Address      *string  `json:"address"`
	City         *string  `json:"city"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	PriceCents   *int64   `json:"price_cents"`
	Amenities    []string `json:"amenities"`
}

func (h ListingHandler) Search(c *gin.Context) {
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	params := domainlistings.SearchParams{
		Location:      c.Query("location"),
		PropertyType:  c.Query("property_type"),
		MinPriceCents: parseInt64(c.Query("min_price_cents")),
		MaxPriceCents: parseInt64(c.Query("max_price_cents")),
		Amenities:     splitCSV(c.Query("amenities")),
		Page:          parseInt(c.Query("page")),
		Limit:         parseInt(c.Query("limit")),
	}
	result, err := h.Service.Search(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.Logger, "search listings", err)
		return
	}
	c.JSON(http.StatusOK, dto.MapListingPage(result))
}

func (h ListingHandler) Featured(c *gin.Context) {
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	items, err := h.Service.Featured(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, "featured listings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dto.MapListings(items)})
}

func (h ListingHandler) Get(c *gin.Context) {
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	listing, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, "get listing", err)
		return
	}
	c.JSON(http.StatusOK, dto.MapListing(listing))
}

func (h ListingHandler) Mine(c *gin.Context) {
	p, ok := requireRole(c, domainuser.RoleOwner)
	if !ok {
		return
	}
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	result, err := h.Service.ByOwner(c.Request.Context(), p.ID(), parseInt(c.Query("page")), parseInt(c.Query("limit")))
	if err != nil {
		respondError(c, h.Logger, "owner listings", err)
		return
	}
	c.JSON(http.StatusOK, dto.MapListingPage(result))
}

func (h ListingHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithCode(c, codeInvalidRequest)
		return
	}
	listing, err := h.Service.Create(c.Request.Context(), p.ID(), catalog.CreateParams{
		Title:        req.Title,
		Description:  req.Description,
		PropertyType: req.PropertyType,
		Location: domainlistings.Location{
			Address: req.Address,
			City:    req.City,
			Lat:     req.Lat,
			Lng:     req.Lng,
		},
		PriceCents: req.PriceCents,
		Amenities:  req.Amenities,
	})
	if err != nil {
		respondError(c, h.Logger, "create listing", err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapListing(listing))
}

func (h ListingHandler) Update(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	var req listingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithCode(c, codeInvalidRequest)
		return
	}
	changes, err := h.changesFrom(c, req)
	if err != nil {
		respondError(c, h.Logger, "update listing", err)
		return
	}
	listing, err := h.Service.Update(c.Request.Context(), p.ID(), c.Param("id"), changes)
	if err != nil {
		respondError(c, h.Logger, "update listing", err)
		return
	}
	c.JSON(http.StatusOK, dto.MapListing(listing))
}

// changesFrom merges partial location fields onto the stored location, since the domain
// replaces the location as a whole.
func (h ListingHandler) changesFrom(c *gin.Context, req listingUpdateRequest) (domainlistings.Changes, error) {
	changes := domainlistings.Changes{
		Title:        req.Title,
		Description:  req.Description,
		PropertyType: req.PropertyType,
		PriceCents:   req.PriceCents,
		Amenities:    req.Amenities,
	}
	if req.Address == nil && req.City == nil && req.Lat == nil && req.Lng == nil {
		return changes, nil
	}
	current, err := h.Service.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		return changes, err
	}
	loc := current.Location
	if req.Address != nil {
		loc.Address = *req.Address
	}
	if req.City != nil {
		loc.City = *req.City
	}
	if req.Lat != nil {
		loc.Lat = *req.Lat
	}
	if req.Lng != nil {
		loc.Lng = *req.Lng
	}
	changes.Location = &loc
	return changes, nil
}

func (h ListingHandler) Deactivate(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	if err := h.Service.Deactivate(c.Request.Context(), p.ID(), c.Param("id")); err != nil {
		respondError(c, h.Logger, "deactivate listing", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImages accepts a multipart form with one or more "images" parts and an optional
// "alt_text" value per part.
func (h ListingHandler) UploadImages(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		abortWithCode(c, codeInvalidRequest)
		return
	}
	headers := form.File["images"]
	if len(headers) == 0 {
		abortWithCode(c, codeNoImages)
		return
	}
	if len(headers) > maxImagesPerUpload {
		abortWithCode(c, codeInvalidRequest)
		return
	}
	altTexts := form.Value["alt_text"]

	uploads := make([]catalog.ImageUpload, 0, len(headers))
	for i, fh := range headers {
		data, contentType, ok := readImage(fh)
		if !ok {
			abortWithCode(c, codeInvalidRequest)
			return
		}
		upload := catalog.ImageUpload{
			Filename:    fh.Filename,
			ContentType: contentType,
			Reader:      bytes.NewReader(data),
		}
		if i < len(altTexts) {
			upload.AltText = altTexts[i]
		}
		uploads = append(uploads, upload)
	}

	listing, err := h.Service.UploadImages(c.Request.Context(), p.ID(), c.Param("id"), uploads)
	if err != nil {
		respondError(c, h.Logger, "upload listing images", err)
		return
	}
	c.JSON(http.StatusOK, dto.MapListing(listing))
}

func readImage(fh *multipart.FileHeader) ([]byte, string, bool) {
	if fh.Size <= 0 || fh.Size > maxListingImageSizeBytes {
		return nil, "", false
	}
	file, err := fh.Open()
	if err != nil {
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxListingImageSizeBytes+1))
	if err != nil || len(data) == 0 || int64(len(data)) > maxListingImageSizeBytes {
		return nil, "", false
	}
	contentType := http.DetectContentType(data)
	if !isAllowedImageType(contentType) {
		return nil, "", false
	}
	return data, contentType, true
}

func isAllowedImageType(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/webp", "image/gif":
		return true
	}
	return false
}

var _ ListingHTTP = ListingHandler{}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseInt(raw string) int {
	value, _ := strconv.Atoi(strings.TrimSpace(raw))
	if value < 0 {
		return 0
	}
	return value
}

func parseInt64(raw string) int64 {
	value, _ := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if value < 0 {
		return 0
	}
	return value
}
