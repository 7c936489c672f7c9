package services

import (
	"sort"
	"strings"

	domain "github.com/asistente-compras/api/internal/domain"
)

// standardLists holds the predefined school lists keyed by educational stage.
var standardLists = map[string]domain.StandardList{
	"basica": {
		Name: "Lista Básica - Educación Primaria",
		Items: []domain.StandardListItem{
			{Name: "Cuaderno universitario 100 hojas", Quantity: 5},
			{Name: "Lápiz grafito HB", Quantity: 10},
			{Name: "Goma de borrar", Quantity: 2},
			{Name: "Sacapuntas", Quantity: 1},
			{Name: "Regla de 30 cm", Quantity: 1},
			{Name: "Tijeras escolares", Quantity: 1},
			{Name: "Pegamento en barra", Quantity: 2},
			{Name: "Caja de lápices de colores", Quantity: 1},
			{Name: "Mochila escolar", Quantity: 1},
			{Name: "Estuche para lápices", Quantity: 1},
		},
	},
	"media": {
		Name: "Lista Media - Educación Secundaria",
		Items: []domain.StandardListItem{
			{Name: "Cuaderno universitario 100 hojas", Quantity: 8},
			{Name: "Lápiz grafito HB", Quantity: 15},
			{Name: "Goma de borrar", Quantity: 3},
			{Name: "Sacapuntas", Quantity: 1},
			{Name: "Regla de 30 cm", Quantity: 1},
			{Name: "Tijeras escolares", Quantity: 1},
			{Name: "Pegamento en barra", Quantity: 2},
			{Name: "Caja de lápices de colores", Quantity: 1},
			{Name: "Mochila escolar", Quantity: 1},
			{Name: "Estuche para lápices", Quantity: 1},
			{Name: "Calculadora científica", Quantity: 1},
			{Name: "Block de dibujo A4", Quantity: 2},
			{Name: "Lápiz grafito 2B", Quantity: 5},
			{Name: "Compás", Quantity: 1},
			{Name: "Transportador", Quantity: 1},
		},
	},
	"universidad": {
		Name: "Lista Universitaria",
		Items: []domain.StandardListItem{
			{Name: "Cuaderno universitario 100 hojas", Quantity: 10},
			{Name: "Lápiz grafito HB", Quantity: 20},
			{Name: "Goma de borrar", Quantity: 5},
			{Name: "Sacapuntas", Quantity: 2},
			{Name: "Regla de 30 cm", Quantity: 1},
			{Name: "Tijeras escolares", Quantity: 1},
			{Name: "Pegamento en barra", Quantity: 3},
			{Name: "Caja de lápices de colores", Quantity: 1},
			{Name: "Mochila universitaria", Quantity: 1},
			{Name: "Estuche para lápices", Quantity: 1},
			{Name: "Calculadora científica avanzada", Quantity: 1},
			{Name: "Block de dibujo A4", Quantity: 5},
			{Name: "Lápiz grafito 2B", Quantity: 10},
			{Name: "Compás", Quantity: 1},
			{Name: "Transportador", Quantity: 1},
			{Name: "Marcadores de pizarra", Quantity: 1},
			{Name: "Post-it", Quantity: 2},
			{Name: "Carpeta con ganchos", Quantity: 2},
			{Name: "USB 16GB", Quantity: 1},
			{Name: "Cargador portátil", Quantity: 1},
		},
	},
	"preescolar": {
		Name: "Lista Preescolar",
		Items: []domain.StandardListItem{
			{Name: "Cuaderno de dibujo A4", Quantity: 3},
			{Name: "Lápiz grafito HB", Quantity: 5},
			{Name: "Goma de borrar", Quantity: 2},
			{Name: "Sacapuntas", Quantity: 1},
			{Name: "Caja de lápices de colores", Quantity: 2},
			{Name: "Caja de crayones", Quantity: 1},
			{Name: "Pegamento en barra", Quantity: 2},
			{Name: "Tijeras de punta roma", Quantity: 1},
			{Name: "Mochila pequeña", Quantity: 1},
			{Name: "Estuche para lápices", Quantity: 1},
			{Name: "Block de papel lustre", Quantity: 1},
			{Name: "Pinceles escolares", Quantity: 1},
			{Name: "Tempera escolar", Quantity: 1},
		},
	},
	"tecnico": {
		Name: "Lista Técnica",
		Items: []domain.StandardListItem{
			{Name: "Cuaderno universitario 100 hojas", Quantity: 8},
			{Name: "Lápiz grafito HB", Quantity: 15},
			{Name: "Goma de borrar", Quantity: 3},
			{Name: "Sacapuntas", Quantity: 1},
			{Name: "Regla de 30 cm", Quantity: 1},
			{Name: "Tijeras escolares", Quantity: 1},
			{Name: "Pegamento en barra", Quantity: 2},
			{Name: "Caja de lápices de colores", Quantity: 1},
			{Name: "Mochila técnica", Quantity: 1},
			{Name: "Estuche para lápices", Quantity: 1},
			{Name: "Calculadora científica", Quantity: 1},
			{Name: "Block de dibujo A4", Quantity: 3},
			{Name: "Lápiz grafito 2B", Quantity: 8},
			{Name: "Compás", Quantity: 1},
			{Name: "Transportador", Quantity: 1},
			{Name: "Escuadra", Quantity: 1},
			{Name: "Cartabón", Quantity: 1},
			{Name: "Marcadores permanentes", Quantity: 1},
			{Name: "Cinta adhesiva", Quantity: 1},
			{Name: "USB 32GB", Quantity: 1},
		},
	},
}

// StandardListByType returns the predefined list for the educational stage.
func StandardListByType(listType string) (domain.StandardList, bool) {
	list, ok := standardLists[strings.ToLower(strings.TrimSpace(listType))]
	return list, ok
}

// StandardListTypes returns the known stage identifiers sorted alphabetically.
func StandardListTypes() []string {
	types := make([]string, 0, len(standardLists))
	for key := range standardLists {
		types = append(types, key)
	}
	sort.Strings(types)
	return types
}
