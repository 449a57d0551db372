package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jostrid/models"
)

type ImageController struct {
	db *gorm.DB
}

func NewImageController(db *gorm.DB) *ImageController {
	return &ImageController{db: db}
}

type ImageDto struct {
	ID   int      `json:"id"`
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

type importImageDto struct {
	URL  string   `json:"url" binding:"required"`
	Tags []string `json:"tags"`
}

func toImageDto(image *models.Image) ImageDto {
	tags := image.Tags
	if tags == nil {
		tags = []string{}
	}
	return ImageDto{ID: image.ID, URL: image.URL, Tags: tags}
}

// GetImages lists images, optionally filtered by tag and paginated. The
// tag filter runs in memory because tags live in a serialized column.
func (c *ImageController) GetImages(ctx *gin.Context) {
	tag := ctx.Query("tag")
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	count, _ := strconv.Atoi(ctx.DefaultQuery("count", "50"))

	if page < 1 {
		page = 1
	}
	if count < 1 {
		count = 50
	}
	if count > 200 {
		count = 200
	}

	var images []models.Image
	if err := c.db.Find(&images).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch images"})
		return
	}

	dtos := make([]ImageDto, 0, len(images))
	for i := range images {
		if tag != "" && !hasTag(&images[i], tag) {
			continue
		}
		dtos = append(dtos, toImageDto(&images[i]))
	}

	start := (page - 1) * count
	if start > len(dtos) {
		start = len(dtos)
	}
	end := start + count
	if end > len(dtos) {
		end = len(dtos)
	}

	ctx.JSON(http.StatusOK, dtos[start:end])
}

// ImportImages inserts the whole batch in one transaction; a failed
// row rolls back the rows before it.
func (c *ImageController) ImportImages(ctx *gin.Context) {
	var imports []importImageDto
	if err := ctx.ShouldBindJSON(&imports); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	dtos := make([]ImageDto, 0, len(imports))
	err := c.db.Transaction(func(tx *gorm.DB) error {
		for _, imp := range imports {
			image := models.Image{URL: imp.URL, Tags: imp.Tags}
			if err := tx.Create(&image).Error; err != nil {
				return err
			}
			dtos = append(dtos, toImageDto(&image))
		}
		return nil
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import images"})
		return
	}

	ctx.JSON(http.StatusOK, dtos)
}

func hasTag(image *models.Image, tag string) bool {
	for _, t := range image.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
