package models

type SearchResponse struct {
	Term    string    `json:"term"`
	Results []Station `json:"results"`
}
