package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	mode := "real"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	if mode != "mock" && mode != "real" {
		fmt.Printf("Usage: trigger [mock|real]\n")
		os.Exit(1)
	}

	host := os.Getenv("CRAWLER_HOST")
	if host == "" {
		host = "http://localhost:8081"
	}

	body := bytes.NewBufferString(fmt.Sprintf(`{"mode": %q}`, mode))
	req, err := http.NewRequest("POST", host+"/api/v1/crawl", body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Printf("Response Status: %s\n", resp.Status)
	payload, _ := io.ReadAll(resp.Body)
	fmt.Println(string(payload))
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
