package review

import (
	"errors"
	"fmt"
	"slices"
)

// IssueStatus is the severity tag of a single formatting defect.
type IssueStatus string

const (
	StatusInfo     IssueStatus = "info"
	StatusWarning  IssueStatus = "warning"
	StatusError    IssueStatus = "error"
	StatusCritical IssueStatus = "critical"
)

// Statuses lists every status from least to most severe.
var Statuses = []IssueStatus{StatusInfo, StatusWarning, StatusError, StatusCritical}

// StatusRank returns a numeric rank for sorting (higher = more severe).
func StatusRank(s IssueStatus) int {
	switch s {
	case StatusCritical:
		return 4
	case StatusError:
		return 3
	case StatusWarning:
		return 2
	case StatusInfo:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known statuses.
func (s IssueStatus) Valid() bool { return StatusRank(s) > 0 }

// Blocking reports whether s breaks readability (error or critical).
func (s IssueStatus) Blocking() bool { return StatusRank(s) >= StatusRank(StatusError) }

// CategoryName is one tag of the fixed inspection taxonomy.
type CategoryName string

const (
	CategoryWordSpacing         CategoryName = "word_spacing"
	CategoryCharacterSpacing    CategoryName = "character_spacing"
	CategorySectionSpacing      CategoryName = "section_spacing"
	CategoryParagraphSpacing    CategoryName = "paragraph_spacing"
	CategoryTextAlignment       CategoryName = "text_alignment"
	CategoryFontQuality         CategoryName = "font_quality"
	CategoryRenderingQuality    CategoryName = "rendering_quality"
	CategoryBulletFormatting    CategoryName = "bullet_formatting"
	CategoryListFormatting      CategoryName = "list_formatting"
	CategoryVisualAlignment     CategoryName = "visual_alignment"
	CategoryImageOcclusion      CategoryName = "image_occlusion"
	CategoryTextOcclusion       CategoryName = "text_occlusion"
	CategoryTableFormatting     CategoryName = "table_formatting"
	CategoryHeaderFooter        CategoryName = "header_and_footer_alignment"
	CategoryMarginPadding       CategoryName = "margin_and_padding_issues"
	CategoryColorContrast       CategoryName = "color_contrast"
	CategoryLineSpacing         CategoryName = "line_spacing"
	CategoryPageNumbering       CategoryName = "page_numbering"
	CategoryFootnoteFormatting  CategoryName = "footnote_formatting"
	CategoryCaptionAlignment    CategoryName = "caption_alignment"
	CategoryHyperlinkFormatting CategoryName = "hyperlink_formatting"
)

// Categories is the closed taxonomy in prompt order.
var Categories = []CategoryName{
	CategoryWordSpacing,
	CategoryCharacterSpacing,
	CategorySectionSpacing,
	CategoryParagraphSpacing,
	CategoryTextAlignment,
	CategoryFontQuality,
	CategoryRenderingQuality,
	CategoryBulletFormatting,
	CategoryListFormatting,
	CategoryVisualAlignment,
	CategoryImageOcclusion,
	CategoryTextOcclusion,
	CategoryTableFormatting,
	CategoryHeaderFooter,
	CategoryMarginPadding,
	CategoryColorContrast,
	CategoryLineSpacing,
	CategoryPageNumbering,
	CategoryFootnoteFormatting,
	CategoryCaptionAlignment,
	CategoryHyperlinkFormatting,
}

// Valid reports whether c belongs to the taxonomy.
func (c CategoryName) Valid() bool { return slices.Contains(Categories, c) }

// Occlusion reports whether c covers cut-off or hidden content.
func (c CategoryName) Occlusion() bool {
	return c == CategoryTextOcclusion || c == CategoryImageOcclusion
}

// FormatIssue is one detected defect.
type FormatIssue struct {
	Description string      `json:"description" yaml:"description"`
	Explanation string      `json:"explanation" yaml:"explanation"`
	Example     string      `json:"example" yaml:"example"`
	Cause       string      `json:"cause" yaml:"cause"`
	Status      IssueStatus `json:"status" yaml:"status"`
	Confidence  int         `json:"confidence" yaml:"confidence"`
}

// FormatCategoryItem groups the issues found for one category.
type FormatCategoryItem struct {
	Name   CategoryName  `json:"name" yaml:"name"`
	Issues []FormatIssue `json:"issues" yaml:"issues"`
}

// FormatReview is the structured output of one provider's review.
type FormatReview struct {
	Explanation string               `json:"explanation" yaml:"explanation"`
	Categories  []FormatCategoryItem `json:"categories" yaml:"categories"`
}

// HasIssues reports whether any issue is error or critical.
func (r FormatReview) HasIssues() bool {
	for _, c := range r.Categories {
		for _, i := range c.Issues {
			if i.Status.Blocking() {
				return true
			}
		}
	}
	return false
}

// IssueCount returns the total number of issues regardless of status.
func (r FormatReview) IssueCount() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.Issues)
	}
	return n
}

// HighestStatus returns the most severe status present, or "" when empty.
func (r FormatReview) HighestStatus() IssueStatus {
	var top IssueStatus
	for _, c := range r.Categories {
		for _, i := range c.Issues {
			if StatusRank(i.Status) > StatusRank(top) {
				top = i.Status
			}
		}
	}
	return top
}

// CountByStatus tallies issues per status.
func (r FormatReview) CountByStatus() map[IssueStatus]int {
	counts := make(map[IssueStatus]int, len(Statuses))
	for _, c := range r.Categories {
		for _, i := range c.Issues {
			counts[i.Status]++
		}
	}
	return counts
}

// Validate checks the review against the taxonomy and field constraints.
func (r FormatReview) Validate() error {
	var errs []error
	for ci, c := range r.Categories {
		if !c.Name.Valid() {
			errs = append(errs, fmt.Errorf("categories[%d]: unknown category %q", ci, c.Name))
		}
		for ii, i := range c.Issues {
			if !i.Status.Valid() {
				errs = append(errs, fmt.Errorf("categories[%d].issues[%d]: unknown status %q", ci, ii, i.Status))
			}
			if i.Confidence < 1 || i.Confidence > 5 {
				errs = append(errs, fmt.Errorf("categories[%d].issues[%d]: confidence %d out of range 1..5", ci, ii, i.Confidence))
			}
		}
	}
	return errors.Join(errs...)
}

// EnforceOcclusionPolicy escalates occlusion issues below error to error.
// It returns the adjusted review and how many issues were escalated.
func EnforceOcclusionPolicy(r FormatReview) (FormatReview, int) {
	escalated := 0
	out := FormatReview{
		Explanation: r.Explanation,
		Categories:  make([]FormatCategoryItem, len(r.Categories)),
	}
	for ci, c := range r.Categories {
		item := FormatCategoryItem{Name: c.Name, Issues: slices.Clone(c.Issues)}
		if c.Name.Occlusion() {
			for ii := range item.Issues {
				if !item.Issues[ii].Status.Blocking() {
					item.Issues[ii].Status = StatusError
					escalated++
				}
			}
		}
		out.Categories[ci] = item
	}
	return out, escalated
}
