package model

// ConvertOptions is the request body of the audio batch conversion.
type ConvertOptions struct {
	DeleteOriginal bool `json:"delete_original"`
	CreateWAV      bool `json:"create_wav"`
	CreateOGG      bool `json:"create_ogg"`
}

// ConvertResult reports an audio batch conversion.
type ConvertResult struct {
	Success   bool `json:"success"`
	Found     int  `json:"found"`
	Converted int  `json:"converted"`
	Failed    int  `json:"failed"`
}

// CleanupResult reports removal of converted originals.
type CleanupResult struct {
	Success    bool  `json:"success"`
	Removed    int   `json:"removed"`
	FreedSpace int64 `json:"freed_space"`
}
