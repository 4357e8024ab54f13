// ReportsData is a paginated response payload for the reports list.
package dto

type ReportsData struct {
	Reports     []ReportInfo `json:"reports"`
	ReportsDir  string       `json:"reportsDir"`
	Length      int          `json:"length"`
	TotalPages  int          `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
	Limit       int          `json:"pageSize"`
}
