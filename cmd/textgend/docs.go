package main

// General API documentation for swaggo. The served document lives in
// internal/apidocs/openapi.yaml.
//
// @title           textgend API
// @version         1.0
// @description     HTTP API for prompt-based text generation.
//
// @BasePath  /
//
// @schemes http
